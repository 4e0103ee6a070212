package bootstrap

import (
	"io"
	"time"

	"github.com/snackbase/snackbase-go/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	logWriter       io.Writer
	gracefulTimeout *time.Duration
	handleSignals   *bool
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is built from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithLogWriter builds the configured logger on w instead of the
// configured output.
func WithLogWriter(w io.Writer) Option {
	return func(o *appOptions) {
		o.logWriter = w
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithSignalHandling controls whether RunTask cancels the task on
// SIGINT/SIGTERM. Enabled by default.
func WithSignalHandling(enabled bool) Option {
	return func(o *appOptions) {
		o.handleSignals = &enabled
	}
}
