package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback run during startup or shutdown.
type Hook func(ctx context.Context) error

// OnStart registers hooks that run, in order, before the task. A start
// hook may register stop hooks for whatever it opened.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStart = append(a.onStart, hooks...)
}

// OnStop registers hooks that run at shutdown. Stop hooks run in reverse
// registration order so resources close before what they depend on.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStop = append(a.onStop, hooks...)
}

// runHooks executes hooks sequentially, returning the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
