// Package render implements the server-side event loop of the canvas: it owns the
// scene and serves drawing requests arriving on the server connection. There is no
// windowing here; the loop keeps the server process alive until a quit request
// arrives, the client goes away, or the done signal fires.
package render

import (
	"context"
	"fmt"

	"github.com/turtlegfx/canvas/ipc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	log *zap.SugaredLogger
}

type Option func(o *options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l.Sugar()
	}
}

func WithLogLevel(lvl zapcore.Level) Option {
	return func(o *options) {
		o.log = o.log.WithOptions(zap.IncreaseLevel(lvl))
	}
}

// Run serves drawing requests on conn until a quit request arrives, done is closed,
// or the connection fails because the client is gone. The last case is the normal end
// of a session and returns nil.
func Run(ctx context.Context, conn *ipc.ServerConn, done <-chan struct{}, opts ...Option) error {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		o.log = logger.Sugar()
	}
	log := o.log.Named("render_loop")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	scene := NewScene()
	for {
		id, req, err := conn.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("render loop canceled")
				return nil
			}
			// The client hung up; the session is over.
			log.Debugf("connection closed, stopping render loop: %s", err)
			return nil
		}

		resp := scene.Apply(req)
		if err := conn.Send(ctx, id, resp); err != nil {
			return fmt.Errorf("sending response: %w", err)
		}

		if req.Kind == ipc.RequestQuit {
			log.Debug("quit requested, stopping render loop")
			return nil
		}
	}
}
