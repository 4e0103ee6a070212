package observability

import (
	"fmt"
	"time"
)

// Config is the file/env configuration for telemetry export.
type Config struct {
	// Enabled turns on OTLP export. When false the global no-op providers stay in place.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// Insecure allows plain HTTP export.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	// MetricInterval is the metric export interval.
	MetricInterval time.Duration `mapstructure:"metric_interval" yaml:"metric_interval"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability: sample_rate must be between 0 and 1")
	}
	if c.MetricInterval < 0 {
		return fmt.Errorf("observability: metric_interval must be non-negative")
	}
	return nil
}

// TracerConfig derives the tracer settings for a service.
func (c Config) TracerConfig(serviceName, version, environment string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     c.SampleRate,
	}
}

// MeterConfig derives the meter settings for a service.
func (c Config) MeterConfig(serviceName, version, environment string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Interval:       c.MetricInterval,
	}
}
