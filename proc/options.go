package proc

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	logger *zap.Logger

	// cmdPath and cmdArgs override the spawned command, for tests. When unset, the
	// current executable is re-launched.
	cmdPath string
	cmdArgs []string
}

type Option func(o *options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithLogLevel(lvl zapcore.Level) Option {
	return func(o *options) {
		o.logger = o.logger.WithOptions(zap.IncreaseLevel(lvl))
	}
}

func withCommand(path string, args ...string) Option {
	return func(o *options) {
		o.cmdPath = path
		o.cmdArgs = args
	}
}

func buildOptions(opts []Option) *options {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("error constructing default logger: %s", err))
	}
	o := &options{logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
