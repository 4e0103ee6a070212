package httpclient

import (
	"maps"
	"net/url"
	"time"

	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/redis"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultRefreshPath    = "/api/v1/auth/refresh"
	defaultUserAgent      = "snackbase-go"
)

// StorageType selects the token persistence backend.
type StorageType string

const (
	// StorageAuto picks redis, then file, then memory based on what is configured.
	StorageAuto StorageType = "auto"
	// StorageMemory keeps tokens in process memory only.
	StorageMemory StorageType = "memory"
	// StorageFile persists tokens to a JSON file.
	StorageFile StorageType = "file"
	// StorageRedis persists tokens to Redis.
	StorageRedis StorageType = "redis"
)

// StorageConfig configures where the session is persisted.
type StorageConfig struct {
	// Type selects the backend. Defaults to auto.
	Type StorageType `yaml:"type" mapstructure:"type"`
	// FilePath is the token file used by the file backend.
	FilePath string `yaml:"file_path" mapstructure:"file_path"`
	// Key is the backend key the session is stored under.
	Key string `yaml:"key" mapstructure:"key"`
	// Redis configures the Redis backend.
	Redis redis.Config `yaml:"redis" mapstructure:"redis"`
}

// resolve returns the concrete backend type, applying auto-detection.
func (s StorageConfig) resolve() StorageType {
	switch s.Type {
	case StorageMemory, StorageFile, StorageRedis:
		return s.Type
	}
	switch {
	case s.Redis.Configured():
		return StorageRedis
	case s.FilePath != "":
		return StorageFile
	default:
		return StorageMemory
	}
}

// Config configures the SnackBase client. A client keeps its own copy;
// changing a Config after New has no effect on the client.
type Config struct {
	// BaseURL is the absolute http(s) URL of the SnackBase backend.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each attempt. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of additional attempts for transient failures. Defaults to 3.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// DisableRetry forces MaxRetries to zero.
	DisableRetry bool `yaml:"disable_retry" mapstructure:"disable_retry"`

	// InitialBackoff is the first retry delay. Defaults to 1s.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`

	// MaxBackoff caps the exponential delay. Defaults to 30s.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`

	// DefaultAccount is used by login when credentials name no account.
	DefaultAccount string `yaml:"default_account" mapstructure:"default_account"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent is sent on every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// RefreshPath is the token refresh endpoint.
	RefreshPath string `yaml:"refresh_path" mapstructure:"refresh_path"`

	// Storage configures token persistence.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
// Negative values are left for Validate to reject.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.DisableRetry {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.RefreshPath == "" {
		c.RefreshPath = defaultRefreshPath
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageAuto
	}
}

// Validate checks that the configuration is usable. Violations are
// reported as ConfigurationError.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.Configuration("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Configuration("base URL must be an absolute URL").
			WithDetail("base_url", c.BaseURL)
	}
	if c.Timeout < 0 {
		return errors.Configuration("timeout must be a non-negative number")
	}
	if c.MaxRetries < 0 {
		return errors.Configuration("max retries must be a non-negative integer")
	}
	if c.InitialBackoff < 0 || c.MaxBackoff < 0 {
		return errors.Configuration("backoff must be a non-negative duration")
	}
	if c.MaxBackoff > 0 && c.InitialBackoff > c.MaxBackoff {
		return errors.Configuration("initial backoff must not exceed max backoff")
	}
	switch c.Storage.Type {
	case "", StorageAuto, StorageMemory:
	case StorageFile:
		if c.Storage.FilePath == "" {
			return errors.Configuration("file storage requires a file path")
		}
	case StorageRedis:
		if !c.Storage.Redis.Configured() {
			return errors.Configuration("redis storage requires an address")
		}
	default:
		return errors.Configuration("unknown storage type " + string(c.Storage.Type))
	}
	return nil
}

// clone returns a deep copy so no two clients share mutable configuration.
func (c Config) clone() Config {
	c.Headers = maps.Clone(c.Headers)
	return c
}
