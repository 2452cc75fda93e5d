package ipc

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const readLimit = 32768

// ClientConn is the client side of an established connection. It is safe for
// concurrent use: writes are serialized by the WebSocket library and reads are
// serialized by the connection.
type ClientConn struct {
	log *zap.SugaredLogger
	ws  *websocket.Conn

	recvMu    sync.Mutex
	closeOnce sync.Once
}

// Send sends a request on behalf of the given client ID.
// It fails once the server process is gone; callers should treat that as the end of
// the session.
func (c *ClientConn) Send(ctx context.Context, id ClientID, req Request) error {
	err := wsjson.Write(ctx, c.ws, requestEnvelope{ClientID: id, Req: req})
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	return nil
}

// Recv receives the next response and the client ID it is addressed to.
func (c *ClientConn) Recv(ctx context.Context) (ClientID, Response, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	var env responseEnvelope
	err := wsjson.Read(ctx, c.ws, &env)
	if err != nil {
		return "", Response{}, fmt.Errorf("receiving response: %w", err)
	}
	return env.ClientID, env.Resp, nil
}

func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	if err != nil {
		c.log.Debugf("error closing conn: %s", err)
	}
	return err
}

// ServerConn is the server side of an established connection.
type ServerConn struct {
	log *zap.SugaredLogger
	ws  *websocket.Conn

	recvMu    sync.Mutex
	closeOnce sync.Once
}

// Recv receives the next request and the client ID it was sent on behalf of.
func (c *ServerConn) Recv(ctx context.Context) (ClientID, Request, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	var env requestEnvelope
	err := wsjson.Read(ctx, c.ws, &env)
	if err != nil {
		return "", Request{}, fmt.Errorf("receiving request: %w", err)
	}
	return env.ClientID, env.Req, nil
}

// Send sends a response addressed to the given client ID.
func (c *ServerConn) Send(ctx context.Context, id ClientID, resp Response) error {
	err := wsjson.Write(ctx, c.ws, responseEnvelope{ClientID: id, Resp: resp})
	if err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	if err != nil {
		c.log.Debugf("error closing conn: %s", err)
	}
	return err
}
