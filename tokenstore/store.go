package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/snackbase/snackbase-go/logger"
)

// DefaultKey is the backend key the session is persisted under.
const DefaultKey = "snackbase_auth"

// State is the authentication state of one client.
type State struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// IsZero reports whether no session is held.
func (s State) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.ExpiresAt == nil
}

func (s State) clone() State {
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		s.ExpiresAt = &t
	}
	return s
}

// Store is the mutex-guarded holder of a client's State. Every mutation is
// written through to the Backend before it returns; concurrent writers
// resolve last-writer-wins.
type Store struct {
	mu      sync.RWMutex
	state   State
	backend Backend
	key     string
	log     *logger.Logger
}

// New creates a Store over backend. A nil backend means memory only and an
// empty key means DefaultKey.
func New(backend Backend, key string, log *logger.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		backend: backend,
		key:     key,
		log:     log.WithComponent("tokenstore"),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// AccessToken returns the current access token.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

// Set replaces the state and persists it. The in-memory state is updated
// even when persistence fails; the error is returned.
func (s *Store) Set(ctx context.Context, accessToken, refreshToken string, expiresAt *time.Time) error {
	next := State{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt}.clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("tokenstore: encode state: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, string(data)); err != nil {
		s.log.Warn("Failed to persist token state", logger.ErrorFields("set", err))
		return fmt.Errorf("tokenstore: persist: %w", err)
	}
	return nil
}

// Clear drops the session and removes it from the backend.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}

	if err := s.backend.Remove(ctx, s.key); err != nil {
		s.log.Warn("Failed to remove persisted token state", logger.ErrorFields("clear", err))
		return fmt.Errorf("tokenstore: remove: %w", err)
	}
	return nil
}

// Load restores a previously persisted session. A missing entry leaves the
// state empty; a corrupt entry is removed and reported.
func (s *Store) Load(ctx context.Context) error {
	raw, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("tokenstore: load: %w", err)
	}
	if !found || raw == "" {
		return nil
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.log.Warn("Discarding unreadable token state", logger.ErrorFields("load", err))
		_ = s.backend.Remove(ctx, s.key)
		return fmt.Errorf("tokenstore: decode state: %w", err)
	}
	if st.ExpiresAt == nil {
		st.ExpiresAt = ExpiryFromJWT(st.AccessToken)
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.log.Debug("Restored token state", logger.Fields("has_refresh_token", st.RefreshToken != ""))
	return nil
}
