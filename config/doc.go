// Package config loads command configuration from YAML files, .env files
// and SNACKBASE_* environment variables using Viper.
//
// # Usage
//
//	type Config struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Client httpclient.Config `mapstructure:"client"`
//	}
//	var cfg Config
//	err := config.LoadConfig("snackbase-mcp", &cfg)
//
// Files are searched for in the working directory, then config/, then the
// per-user config directory (for example ~/.config/snackbase), as config.yml
// or snackbase.yml; .env.<service> and .env follow the same order. The
// --config flag skips the search. Environment variables
// override file values: SNACKBASE_CLIENT_BASE_URL sets client.base_url.
package config
