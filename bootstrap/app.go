package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App is a command with uniform lifecycle management. C is the config
// type; any struct embedding config.ServiceConfig satisfies Config.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	Summary *Summary

	gracefulTimeout time.Duration
	handleSignals   bool

	mu      sync.Mutex
	onStart []Hook
	onStop  []Hook
}

// NewApp applies config defaults, validates the config and builds the
// logger. Validation failures are returned as ConfigurationError.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: defaultGracefulTimeout,
		handleSignals:   true,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.handleSignals != nil {
		app.handleSignals = *o.handleSignals
	}

	switch {
	case o.logger != nil:
		app.Logger = o.logger
	case o.logWriter != nil:
		app.Logger = logger.NewWithWriter(&base.Logging, base.Name, o.logWriter)
	default:
		app.Logger = logger.New(&base.Logging, base.Name)
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// RunTask runs start hooks, then task, then shutdown. The task context is
// canceled on SIGINT/SIGTERM unless signal handling is disabled. Stop hooks
// run even when startup fails part way, so anything a start hook opened
// and registered is released.
//
// The task's error wins over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.Warn("Shutdown after failed startup incomplete", logger.ErrorFields("shutdown", stopErr))
		}
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.handleSignals {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		go func() {
			select {
			case sig := <-sigCh:
				a.Logger.Info("Received signal, canceling task", logger.Fields("signal", sig.String()))
				cancel()
			case <-taskCtx.Done():
			}
		}()
	}

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// Shutdown runs stop hooks. Use when managing your own lifecycle.
func (a *App[C]) Shutdown(_ context.Context) error {
	return a.stop()
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("Starting", logger.Fields("name", a.Name, "version", a.Version))

	// Hooks may register further hooks, so take a snapshot.
	a.mu.Lock()
	hooks := append([]Hook(nil), a.onStart...)
	a.mu.Unlock()

	if err := runHooks(ctx, hooks); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Log(a.Logger)
	return nil
}

// stop runs stop hooks in reverse order within the graceful timeout. Every
// hook runs; failures are joined.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	a.mu.Lock()
	hooks := a.onStop
	a.onStop = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			a.Logger.Error("Stop hook failed", logger.ErrorFields("shutdown", err))
			errs = append(errs, err)
		}
	}

	a.Logger.Debug("Shutdown complete")
	return stderrors.Join(errs...)
}
