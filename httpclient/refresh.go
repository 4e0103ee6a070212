package httpclient

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/snackbase/snackbase-go/logger"
	"github.com/snackbase/snackbase-go/observability"
	"github.com/snackbase/snackbase-go/tokenstore"
)

// ErrNoRefreshToken is returned when a refresh is needed but the store
// holds no refresh token.
var ErrNoRefreshToken = stderrors.New("httpclient: no refresh token available")

type refreshPhase int

const (
	phaseIdle refreshPhase = iota
	phaseRefreshing
)

// refreshCall is the completion handle shared by every request waiting on
// one refresh. state and err are written before done is closed.
type refreshCall struct {
	done  chan struct{}
	state tokenstore.State
	err   error
}

// refresher guarantees at most one refresh exchange in flight per client.
type refresher struct {
	mu    sync.Mutex
	phase refreshPhase
	call  *refreshCall

	store    *tokenstore.Store
	dispatch *dispatcher
	path     string
	timeout  time.Duration
	log      *logger.Logger
	metrics  *observability.ClientMetrics
}

// refresh obtains a new access token after failedToken was rejected. The
// first caller starts the exchange; callers arriving while it runs wait for
// the same outcome. When the store already holds a different access token,
// a refresh has completed since failedToken was sent and its result is
// returned without a new exchange.
func (r *refresher) refresh(ctx context.Context, failedToken string) (tokenstore.State, error) {
	r.mu.Lock()
	call := r.call
	if r.phase == phaseIdle {
		current := r.store.Get()
		if current.AccessToken != "" && current.AccessToken != failedToken {
			r.mu.Unlock()
			return current, nil
		}
		if current.RefreshToken == "" {
			r.mu.Unlock()
			return current, ErrNoRefreshToken
		}

		call = &refreshCall{done: make(chan struct{})}
		r.phase = phaseRefreshing
		r.call = call
		r.mu.Unlock()

		// The exchange outlives the caller that started it.
		go r.run(context.WithoutCancel(ctx), call, current.RefreshToken)
	} else {
		r.mu.Unlock()
	}

	select {
	case <-call.done:
		return call.state, call.err
	case <-ctx.Done():
		return tokenstore.State{}, ctx.Err()
	}
}

// inFlight reports whether a refresh exchange is running.
func (r *refresher) inFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == phaseRefreshing
}

func (r *refresher) run(ctx context.Context, call *refreshCall, refreshToken string) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.log.Info("Refreshing access token")
	start := time.Now()

	state, err := r.exchange(ctx, refreshToken)
	if err != nil {
		r.log.Warn("Token refresh failed, clearing session", logger.ErrorFields("refresh", err))
		if clearErr := r.store.Clear(ctx); clearErr != nil {
			r.log.Warn("Failed to clear token state", logger.ErrorFields("clear", clearErr))
		}
		r.metrics.RecordRefresh(ctx, "failure")
	} else {
		if setErr := r.store.Set(ctx, state.AccessToken, state.RefreshToken, state.ExpiresAt); setErr != nil {
			r.log.Warn("Refreshed token not persisted", logger.ErrorFields("persist", setErr))
		}
		r.log.Info("Access token refreshed", logger.DurationFields("refresh", time.Since(start)))
		r.metrics.RecordRefresh(ctx, "success")
	}

	r.mu.Lock()
	call.state = state
	call.err = err
	r.phase = phaseIdle
	r.call = nil
	r.mu.Unlock()
	close(call.done)
}

// refreshResponse accepts the token field names SnackBase and OAuth-style
// backends use.
type refreshResponse struct {
	Token        string          `json:"token"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    json.Number     `json:"expires_in"`
	ExpiresAt    json.RawMessage `json:"expires_at"`
}

// exchange performs the refresh call: one attempt, no Authorization header.
func (r *refresher) exchange(ctx context.Context, refreshToken string) (tokenstore.State, error) {
	req := &Request{
		Method:   http.MethodPost,
		Path:     r.path,
		Body:     map[string]string{"refresh_token": refreshToken},
		SkipAuth: true,
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return tokenstore.State{}, err
	}

	resp, err := r.dispatch.send(ctx, req, body, "")
	if err != nil {
		return tokenstore.State{}, err
	}

	var payload refreshResponse
	if err := resp.JSON(&payload); err != nil {
		return tokenstore.State{}, err
	}
	return payload.state(refreshToken, time.Now())
}

func (p refreshResponse) state(previousRefresh string, now time.Time) (tokenstore.State, error) {
	access := p.Token
	if access == "" {
		access = p.AccessToken
	}
	if access == "" {
		return tokenstore.State{}, fmt.Errorf("httpclient: refresh response contained no access token")
	}

	refresh := p.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return tokenstore.State{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    p.expiry(access, now),
	}, nil
}

// expiry resolves expires_in, then expires_at (RFC 3339 or unix seconds),
// then the token's own exp claim.
func (p refreshResponse) expiry(access string, now time.Time) *time.Time {
	if p.ExpiresIn != "" {
		if secs, err := p.ExpiresIn.Float64(); err == nil && secs > 0 {
			t := now.Add(time.Duration(secs * float64(time.Second))).UTC()
			return &t
		}
	}
	if t := parseTimestamp(p.ExpiresAt); t != nil {
		return t
	}
	return tokenstore.ExpiryFromJWT(access)
}

func parseTimestamp(raw json.RawMessage) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			t = t.UTC()
			return &t
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := time.Unix(secs, 0).UTC()
			return &t
		}
		return nil
	}
	var secs float64
	if json.Unmarshal(raw, &secs) == nil && secs > 0 {
		t := time.Unix(int64(secs), 0).UTC()
		return &t
	}
	return nil
}
