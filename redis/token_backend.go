package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/snackbase/snackbase-go/tokenstore"
)

// TokenBackend is a tokenstore.Backend that keeps values in Redis.
// All keys are prefixed with the key prefix followed by a colon separator.
type TokenBackend struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewTokenBackend creates a TokenBackend over client. An empty keyPrefix
// falls back to the client's configured prefix.
func NewTokenBackend(client *Client, keyPrefix string) *TokenBackend {
	cfg := client.Config()
	if keyPrefix == "" {
		keyPrefix = cfg.KeyPrefix
	}
	return &TokenBackend{client: client, keyPrefix: keyPrefix, ttl: cfg.ttl()}
}

func (b *TokenBackend) fullKey(key string) string {
	if b.keyPrefix == "" {
		return key
	}
	return b.keyPrefix + ":" + key
}

// Get implements tokenstore.Backend.
func (b *TokenBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, found, err := b.client.Get(ctx, b.fullKey(key))
	if err != nil {
		return "", false, fmt.Errorf("token backend get %q: %w", key, err)
	}
	return v, found, nil
}

// Set implements tokenstore.Backend.
func (b *TokenBackend) Set(ctx context.Context, key, value string) error {
	if err := b.client.Set(ctx, b.fullKey(key), value, b.ttl); err != nil {
		return fmt.Errorf("token backend set %q: %w", key, err)
	}
	return nil
}

// Remove implements tokenstore.Backend.
func (b *TokenBackend) Remove(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.fullKey(key)); err != nil {
		return fmt.Errorf("token backend remove %q: %w", key, err)
	}
	return nil
}

// compile-time interface check
var _ tokenstore.Backend = (*TokenBackend)(nil)
