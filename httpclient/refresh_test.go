package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/snackbase/snackbase-go/errors"
)

// authServer serves the refresh endpoint and a protected endpoint that only
// accepts the "new-access" token.
type authServer struct {
	refreshes    atomic.Int32
	protected    atomic.Int32
	refreshDelay time.Duration
	refreshFails bool
	release      chan struct{}
	lastBody     atomic.Value
	lastAuth     atomic.Value
}

func (s *authServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			s.refreshes.Add(1)
			s.lastAuth.Store(r.Header.Get("Authorization"))
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			s.lastBody.Store(body)
			if s.release != nil {
				<-s.release
			}
			time.Sleep(s.refreshDelay)
			if s.refreshFails {
				w.WriteHeader(401)
				w.Write([]byte(`{"detail":"Refresh token expired"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"token":"new-access","refresh_token":"new-refresh","expires_in":3600}`))
			return
		}
		s.protected.Add(1)
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(401)
			w.Write([]byte(`{"detail":"Token expired"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})
}

func TestRefresh_ConcurrentBurstRefreshesOnce(t *testing.T) {
	as := &authServer{refreshDelay: 50 * time.Millisecond}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	ctx := context.Background()
	if err := c.Tokens().Set(ctx, "old-access", "old-refresh", nil); err != nil {
		t.Fatal(err)
	}

	const n = 10
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := c.Get(ctx, "/api/v1/records/posts")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("expected every request to succeed after refresh, got %v", err)
	}

	if got := as.refreshes.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh, got %d", got)
	}
	state := c.Tokens().Get()
	if state.AccessToken != "new-access" || state.RefreshToken != "new-refresh" {
		t.Errorf("unexpected token state after refresh: %+v", state)
	}
	if state.ExpiresAt == nil || time.Until(*state.ExpiresAt) < 59*time.Minute {
		t.Errorf("expected expiry about an hour out, got %v", state.ExpiresAt)
	}
	if auth := as.lastAuth.Load(); auth != "" {
		t.Errorf("refresh call must not carry Authorization, got %v", auth)
	}
	if body := as.lastBody.Load().(map[string]string); body["refresh_token"] != "old-refresh" {
		t.Errorf("expected refresh_token in body, got %v", body)
	}
}

func TestRefresh_FailureFailsAllAndClearsSession(t *testing.T) {
	as := &authServer{refreshDelay: 50 * time.Millisecond, refreshFails: true}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, fs := newTestClient(t, srv, nil)
	ctx := context.Background()
	_ = c.Tokens().Set(ctx, "old-access", "old-refresh", nil)

	const n = 8
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, errs[i] = c.Get(ctx, "/api/v1/records/posts")
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if !errors.IsAuthentication(err) {
			t.Errorf("request %d: expected authentication error, got %v", i, err)
		}
	}
	if got := as.refreshes.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh attempt, got %d", got)
	}
	if !c.Tokens().Get().IsZero() {
		t.Errorf("expected session cleared, got %+v", c.Tokens().Get())
	}
	if len(fs.recorded()) != 0 {
		t.Error("authentication failures must not be retried")
	}
}

func TestRefresh_OriginalErrorReturnedOnFailure(t *testing.T) {
	as := &authServer{refreshFails: true}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_ = c.Tokens().Set(context.Background(), "old-access", "old-refresh", nil)

	_, err := c.Get(context.Background(), "/api/v1/auth/me")
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Message != "Token expired" {
		t.Errorf("expected the original 401 error, got %v", err)
	}
}

func TestRefresh_NoRefreshTokenSkipsExchange(t *testing.T) {
	as := &authServer{}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_ = c.Tokens().Set(context.Background(), "old-access", "", nil)

	_, err := c.Get(context.Background(), "/api/v1/records/posts")
	if !errors.IsAuthentication(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if as.refreshes.Load() != 0 {
		t.Errorf("expected no refresh call, got %d", as.refreshes.Load())
	}
	if as.protected.Load() != 1 {
		t.Errorf("expected exactly one request, got %d", as.protected.Load())
	}
}

func TestRefresh_SkipAuthRequestsNeverRefresh(t *testing.T) {
	as := &authServer{}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_ = c.Tokens().Set(context.Background(), "old-access", "old-refresh", nil)

	_, err := c.Post(context.Background(), "/api/v1/auth/login", map[string]string{}, WithoutAuth())
	if !errors.IsAuthentication(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if as.refreshes.Load() != 0 {
		t.Error("requests without auth must not trigger a refresh")
	}
}

func TestRefresh_ResendHappensOnlyOnce(t *testing.T) {
	var refreshes, protected atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshes.Add(1)
			w.Write([]byte(`{"token":"new-access"}`))
			return
		}
		protected.Add(1)
		w.WriteHeader(401)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_ = c.Tokens().Set(context.Background(), "old-access", "old-refresh", nil)

	_, err := c.Get(context.Background(), "/api/v1/auth/me")
	if !errors.IsAuthentication(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if refreshes.Load() != 1 || protected.Load() != 2 {
		t.Errorf("expected 1 refresh and 2 sends, got %d and %d", refreshes.Load(), protected.Load())
	}
	if got := c.Tokens().Get().RefreshToken; got != "old-refresh" {
		t.Errorf("expected previous refresh token kept, got %q", got)
	}
}

func TestRefresh_WaiterCancellationLeavesRefreshRunning(t *testing.T) {
	as := &authServer{release: make(chan struct{})}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_ = c.Tokens().Set(context.Background(), "old-access", "old-refresh", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "/api/v1/records/posts")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !c.refresher.inFlight() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.IsNetwork(err) {
		t.Errorf("expected network error for canceled caller, got %v", err)
	}
	close(as.release)

	for c.refresher.inFlight() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := c.Tokens().AccessToken(); got != "new-access" {
		t.Errorf("expected refresh to complete after caller left, got %q", got)
	}
}

func TestRefreshTokens_Explicit(t *testing.T) {
	as := &authServer{}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_ = c.Tokens().Set(context.Background(), "old-access", "old-refresh", nil)

	state, err := c.RefreshTokens(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.AccessToken != "new-access" {
		t.Errorf("expected new access token, got %q", state.AccessToken)
	}
}

func TestRefreshTokens_NoRefreshToken(t *testing.T) {
	as := &authServer{}
	srv := httptest.NewServer(as.handler(t))
	defer srv.Close()

	c, _ := newTestClient(t, srv, nil)
	_, err := c.RefreshTokens(context.Background())
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeAuthentication || appErr.HTTPStatus != 401 {
		t.Fatalf("expected 401 authentication error, got %v", err)
	}
	if as.refreshes.Load() != 0 {
		t.Error("expected no refresh call")
	}
}

func TestRefreshResponse_State(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := now.Add(2 * time.Hour)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		body        string
		wantAccess  string
		wantRefresh string
		wantExpiry  *time.Time
		wantErr     bool
	}{
		{
			name:        "snackbase token field with expires_in",
			body:        `{"token":"a","refresh_token":"r2","expires_in":60}`,
			wantAccess:  "a",
			wantRefresh: "r2",
			wantExpiry:  ptr(now.Add(time.Minute)),
		},
		{
			name:        "oauth access_token keeps previous refresh",
			body:        `{"access_token":"a"}`,
			wantAccess:  "a",
			wantRefresh: "prev",
		},
		{
			name:        "expires_at rfc3339",
			body:        `{"token":"a","expires_at":"2026-01-01T03:00:00Z"}`,
			wantAccess:  "a",
			wantRefresh: "prev",
			wantExpiry:  ptr(now.Add(3 * time.Hour)),
		},
		{
			name:        "expires_at unix seconds",
			body:        `{"token":"a","expires_at":1767225600}`,
			wantAccess:  "a",
			wantRefresh: "prev",
			wantExpiry:  ptr(time.Unix(1767225600, 0).UTC()),
		},
		{
			name:        "expiry from jwt claim",
			body:        `{"token":"` + signed + `"}`,
			wantAccess:  signed,
			wantRefresh: "prev",
			wantExpiry:  ptr(time.Unix(exp.Unix(), 0)),
		},
		{
			name:    "missing access token",
			body:    `{"refresh_token":"r"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p refreshResponse
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			state, err := p.state("prev", now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("state() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if state.AccessToken != tt.wantAccess || state.RefreshToken != tt.wantRefresh {
				t.Errorf("got %q/%q, want %q/%q", state.AccessToken, state.RefreshToken, tt.wantAccess, tt.wantRefresh)
			}
			switch {
			case tt.wantExpiry == nil && state.ExpiresAt != nil:
				t.Errorf("expected no expiry, got %v", state.ExpiresAt)
			case tt.wantExpiry != nil && (state.ExpiresAt == nil || !state.ExpiresAt.Equal(*tt.wantExpiry)):
				t.Errorf("expected expiry %v, got %v", tt.wantExpiry, state.ExpiresAt)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
