package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/julienschmidt/httprouter"
	"nhooyr.io/websocket"
)

// ExchangeFunc delivers a freshly generated handshake name to the server process and
// returns once it has been fully delivered.
type ExchangeFunc func(ctx context.Context, name string) error

// Connect establishes the client side of a connection. It generates a one-shot
// handshake name, starts a loopback listener for it, delivers the name through
// exchange, and waits for the server process to dial back. The name is fully
// delivered before Connect starts waiting; no message flows before the handshake
// completes.
//
// Connect fails if the name cannot be delivered or if ctx is done before the server
// connects back.
func Connect(ctx context.Context, exchange ExchangeFunc, opts ...Option) (*ClientConn, error) {
	o := buildOptions(opts)
	log := o.log.Named("client_conn")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listening for handshake: %w", err)
	}

	token := uuid.NewString()
	name := fmt.Sprintf("%s/%s", listener.Addr().String(), token)

	accepted := make(chan *websocket.Conn, 1)
	var acceptOnce sync.Once

	router := httprouter.New()
	router.GET("/handshake/:token", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		if params.ByName("token") != token {
			http.Error(w, "unknown handshake token", http.StatusNotFound)
			return
		}
		wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			CompressionMode: websocket.CompressionContextTakeover,
		})
		if err != nil {
			log.Debugf("error accepting WebSocket conn: %s", err)
			return
		}
		delivered := false
		acceptOnce.Do(func() {
			accepted <- wsConn
			delivered = true
		})
		if !delivered {
			wsConn.Close(websocket.StatusPolicyViolation, "handshake already completed")
		}
	})

	server := &http.Server{Handler: router}
	go server.Serve(listener)
	// The accepted WebSocket conn is hijacked, so closing the HTTP server only tears
	// down the listener and any stray non-upgraded connections.
	defer server.Close()

	if err := exchange(ctx, name); err != nil {
		return nil, fmt.Errorf("delivering handshake name: %w", err)
	}
	log.Debugw("delivered handshake name, waiting for server to dial back", "Name", name)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for server to connect back: %w", ctx.Err())
	case wsConn := <-accepted:
		wsConn.SetReadLimit(readLimit)
		log.Debug("handshake complete")
		return &ClientConn{log: log, ws: wsConn}, nil
	}
}

// ConnectStdin establishes the server side of a connection by reading one
// newline-terminated handshake name from stdin and dialing it back.
func ConnectStdin(ctx context.Context, opts ...Option) (*ServerConn, error) {
	name, err := readName(os.Stdin)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, name, opts...)
}

// Dial establishes the server side of a connection from a handshake name.
func Dial(ctx context.Context, name string, opts ...Option) (*ServerConn, error) {
	o := buildOptions(opts)
	log := o.log.Named("server_conn")

	addr, token, err := splitName(name)
	if err != nil {
		return nil, err
	}

	// The client's listener races with our dial, so retry connection failures for a
	// short while.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Logger = &logAdapter{log}

	u := fmt.Sprintf("ws://%s/handshake/%s", addr, token)
	log.Debugw("dialing handshake listener", "URL", u)
	wsConn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		HTTPClient:      retryClient.StandardClient(),
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing handshake listener: %w", err)
	}
	wsConn.SetReadLimit(readLimit)

	return &ServerConn{log: log, ws: wsConn}, nil
}

func readName(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading handshake name: %w", err)
	}
	name := strings.TrimSuffix(line, "\n")
	if name == "" {
		return "", errors.New("empty handshake name")
	}
	return name, nil
}

func splitName(name string) (addr, token string, err error) {
	addr, token, ok := strings.Cut(name, "/")
	if !ok || addr == "" || token == "" {
		return "", "", fmt.Errorf("malformed handshake name %q", name)
	}
	return addr, token, nil
}
