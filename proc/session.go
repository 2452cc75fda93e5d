package proc

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/turtlegfx/canvas/ipc"
	"go.uber.org/zap"
)

// Session is a live client-side session with a spawned server process. The
// connection stops working once the server process terminates; callers should treat
// failing Send/Recv calls as the end of the session.
type Session struct {
	log  *zap.SugaredLogger
	proc *ServerProc
	conn *ipc.ClientConn

	once   sync.Once
	exitFn func(code int)
}

// NewSession spawns the server process and performs the handshake, returning a
// session ready for Send and Recv. On handshake failure the spawned process is killed
// and an error is returned; the caller may retry with a fresh NewSession.
func NewSession(ctx context.Context, opts ...Option) (*Session, error) {
	o := buildOptions(opts)

	p, err := Spawn(opts...)
	if err != nil {
		return nil, err
	}

	conn, err := ipc.Connect(ctx, func(ctx context.Context, name string) error {
		return p.SendOneshotName(name)
	}, ipc.WithLogger(o.logger))
	if err != nil {
		p.Abort()
		return nil, fmt.Errorf("connecting to server process: %w", err)
	}

	return &Session{
		log:    o.logger.Sugar().Named("session"),
		proc:   p,
		conn:   conn,
		exitFn: os.Exit,
	}, nil
}

// Send sends a drawing request on behalf of the given client ID.
func (s *Session) Send(ctx context.Context, id ipc.ClientID, req ipc.Request) error {
	return s.conn.Send(ctx, id, req)
}

// Recv receives the next response and the client ID it is addressed to.
func (s *Session) Recv(ctx context.Context) (ipc.ClientID, ipc.Response, error) {
	return s.conn.Recv(ctx)
}

// Close finishes the session the intended way: it blocks until the server process
// exits, leaving the drawing visible for as long as the server stays up. A clean
// server exit completes silently. A failing server exit terminates this process with
// the server's exit code (or 1 when it is unavailable) so a rendering crash is never
// swallowed. An error from the wait itself is unrecoverable and panics.
//
// The session is consumed by whichever of Close or Abort runs first; later calls are
// no-ops.
func (s *Session) Close() error {
	s.once.Do(func() {
		status, err := s.proc.Wait(context.Background())
		if s.conn != nil {
			s.conn.Close()
		}
		if err != nil {
			s.log.Panicf("error while waiting on server process: %s", err)
		}
		if !status.Success() {
			code := status.Code
			if code < 0 {
				code = 1
			}
			s.exitFn(code)
		}
	})
	return nil
}

// Abort finishes the session the fast way: the server process is killed immediately
// and nothing is waited on. Intended for error and panic paths, where the user has a
// bug to fix and should not be stalled behind the canvas.
func (s *Session) Abort() {
	s.once.Do(func() {
		s.proc.Abort()
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

// Run spawns a session, hands it to fn, and finalizes it on every exit path. A panic
// or an error from fn aborts the session, killing the server process; a normal return
// closes it, waiting for the server process to exit. Panics are re-raised after the
// abort.
func Run(ctx context.Context, fn func(*Session) error, opts ...Option) error {
	sess, err := NewSession(ctx, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			sess.Abort()
			panic(r)
		}
	}()

	if err := fn(sess); err != nil {
		sess.Abort()
		return err
	}
	return sess.Close()
}
