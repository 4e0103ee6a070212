package redis

import (
	"fmt"
	"time"
)

// Config holds Redis connection configuration.
type Config struct {
	// Addr is the Redis server address (host:port). An empty Addr means
	// Redis is not configured.
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Password is the Redis server password.
	Password string `mapstructure:"password" yaml:"password"`

	// DB is the Redis database number.
	DB int `mapstructure:"db" yaml:"db"`

	// KeyPrefix namespaces every key written by the token backend.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// TTL bounds how long a persisted session lives (e.g. "720h"). Empty means no expiry.
	TTL string `mapstructure:"ttl" yaml:"ttl"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size"`

	// MaxRetries is the maximum number of retries before giving up (0 = default 3).
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// DialTimeout is the timeout for establishing new connections (e.g. "5s").
	DialTimeout string `mapstructure:"dial_timeout" yaml:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads (e.g. "3s").
	ReadTimeout string `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the timeout for socket writes (e.g. "3s").
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Configured reports whether a Redis address has been set.
func (c *Config) Configured() bool { return c.Addr != "" }

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "snackbase"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	for name, v := range map[string]string{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.TTL != "" {
		if d, err := time.ParseDuration(c.TTL); err != nil || d < 0 {
			return fmt.Errorf("invalid ttl %q", c.TTL)
		}
	}
	return nil
}

func (c *Config) ttl() time.Duration {
	if c.TTL == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.TTL)
	return d
}
