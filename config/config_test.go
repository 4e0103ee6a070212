package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func(env string) ServiceConfig {
		cfg := ServiceConfig{Name: "svc", Environment: env}
		cfg.Logging.ApplyDefaults()
		return cfg
	}
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", valid("development"), false, ""},
		{"valid production", valid("production"), false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", valid("qa"), true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testClientConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Client        testClientConfig `mapstructure:"client"`
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "snackbase.yml")

	yamlContent := `
name: snackbase-mcp
environment: staging
client:
  base_url: http://localhost:8000
  timeout: 5s
  max_retries: 2
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("snackbase-mcp", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "snackbase-mcp" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.Client.BaseURL != "http://localhost:8000" {
		t.Errorf("expected base url, got %q", cfg.Client.BaseURL)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Client.MaxRetries)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("client:\n  base_url: http://from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SNACKBASE_CLIENT_BASE_URL", "http://from-env:8000")
	t.Setenv("SNACKBASE_CLIENT_MAX_RETRIES", "5")
	t.Setenv("CLIENT_TIMEOUT", "9s")

	var cfg testConfig
	if err := LoadConfig("snackbase-mcp", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.BaseURL != "http://from-env:8000" {
		t.Errorf("expected env override, got %q", cfg.Client.BaseURL)
	}
	if cfg.Client.MaxRetries != 5 {
		t.Errorf("expected 5 retries from env, got %d", cfg.Client.MaxRetries)
	}
	if cfg.Client.Timeout != 0 {
		t.Errorf("unprefixed variables must be ignored, got timeout %v", cfg.Client.Timeout)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("SNACKBASE_CLIENT_BASE_URL=http://dotenv:8000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SNACKBASE_CLIENT_BASE_URL") })

	var cfg testConfig
	if err := LoadConfig("snackbase-mcp", &cfg, WithEnvFile(envPath), WithFileSystem(&RealFileSystem{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.BaseURL != "http://dotenv:8000" {
		t.Errorf("expected value from .env, got %q", cfg.Client.BaseURL)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("client: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(configPath)); err == nil {
		t.Error("expected error for malformed config file")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverWorkingDirFirst(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/config.yml":                  true,
		"./snackbase.yml":                      true,
		"/home/u/.config/snackbase/config.yml": true,
	}}
	resolver := &Resolver{FileSystem: fs, UserDir: "/home/u/.config/snackbase"}
	files := resolver.ResolveFiles("snackbase-mcp", LoaderConfig{})
	if files.ConfigFile != "./snackbase.yml" {
		t.Errorf("expected working directory config to win, got %q", files.ConfigFile)
	}
}

func TestResolverFallsBackToUserDir(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"/home/u/.config/snackbase/snackbase.yml": true,
		"/home/u/.config/snackbase/.env":          true,
	}}
	files := (&Resolver{FileSystem: fs, UserDir: "/home/u/.config/snackbase"}).ResolveFiles("snackbase-mcp", LoaderConfig{})
	if files.ConfigFile != "/home/u/.config/snackbase/snackbase.yml" {
		t.Errorf("expected user config, got %q", files.ConfigFile)
	}
	if files.EnvFile != "/home/u/.config/snackbase/.env" {
		t.Errorf("expected user .env, got %q", files.EnvFile)
	}
}

func TestResolverIgnoresCommandDirs(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/snackbase-mcp/config.yml":  true,
		"../cmd/snackbase-mcp/config.yml": true,
		"../config/config.yml":            true,
	}}
	files := (&Resolver{FileSystem: fs, UserDir: "/nowhere"}).ResolveFiles("snackbase-mcp", LoaderConfig{})
	if files.ConfigFile != "" {
		t.Errorf("expected no config outside the search dirs, got %q", files.ConfigFile)
	}
}

func TestResolverFindsSnackbaseYML(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./snackbase.yml": true, "./.env": true, "./.env.snackbase-mcp": true}}
	files := (&Resolver{FileSystem: fs, UserDir: "/nowhere"}).ResolveFiles("snackbase-mcp", LoaderConfig{})
	if files.ConfigFile != "./snackbase.yml" {
		t.Errorf("expected ./snackbase.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env.snackbase-mcp" {
		t.Errorf("expected service .env to win, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config.yml": true}}
	files := (&Resolver{FileSystem: fs}).ResolveFiles("svc", LoaderConfig{ConfigFile: "/etc/snackbase.yml", EnvFile: "/etc/.env"})
	if files.ConfigFile != "/etc/snackbase.yml" || files.EnvFile != "/etc/.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("CLIENT_BASE_URL")
	want := map[string]bool{"client_base_url": false, "client.base_url": false, "client.base.url": false}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected variant %q in %v", k, variants)
		}
	}
}
