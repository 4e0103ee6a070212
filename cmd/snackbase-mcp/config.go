package main

import (
	"fmt"

	"github.com/snackbase/snackbase-go/config"
	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/httpclient"
	"github.com/snackbase/snackbase-go/observability"
	"github.com/snackbase/snackbase-go/version"
)

const serviceName = "snackbase-mcp"

// Config is the command configuration, loaded from snackbase.yml, .env
// and SNACKBASE_* variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Client               httpclient.Config    `yaml:"client" mapstructure:"client"`
	Observability        observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills zero values. Client defaults are applied by the
// client itself.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Client.UserAgent == "" {
		c.Client.UserAgent = version.UserAgent(serviceName)
	}
	c.Observability.ApplyDefaults()
}

// Validate checks the configuration. Stdout carries the protocol, so logs
// must go to stderr.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if c.Logging.Output == "stdout" {
		return fmt.Errorf("config.logging.output must be stderr; stdout carries the protocol")
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	return nil
}

// loadConfig reads the config file, .env file and environment. Defaults
// and validation are applied by bootstrap.NewApp.
func loadConfig(configFile, envFile string) (*Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	return &cfg, nil
}
