package ipc

import (
	"fmt"

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

func buildOptions(opts []Option) *options {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("error constructing default logger: %s", err))
	}
	o := &options{log: logger.Sugar()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type logAdapter struct {
	*zap.SugaredLogger
}

func (a *logAdapter) Printf(msg string, args ...interface{}) { a.Debugf(msg, args...) }
