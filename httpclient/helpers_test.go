package httpclient

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeSleep records retry waits without blocking.
type fakeSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (f *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits = append(f.waits, d)
	return nil
}

func (f *fakeSleep) recorded() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

// newTestClient creates a client against srv with simulated retry waits.
func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config), opts ...Option) (*Client, *fakeSleep) {
	t.Helper()
	fs := &fakeSleep{}
	cfg := Config{BaseURL: srv.URL}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, append([]Option{WithSleep(fs.sleep)}, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, fs
}
