package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithEnvOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/survey_test")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Provider.Type != "smtp" {
		t.Errorf("provider = %q, want default smtp", cfg.Provider.Type)
	}
	if cfg.Dispatch.RateLimit != 30 || cfg.Dispatch.RateWindowSeconds != 60 {
		t.Errorf("rate limit = %d/%ds, want 30/60s", cfg.Dispatch.RateLimit, cfg.Dispatch.RateWindowSeconds)
	}
	if cfg.Dispatch.MaxRetries != 3 {
		t.Errorf("max retries = %d, want 3", cfg.Dispatch.MaxRetries)
	}
	if got := cfg.Dispatch.RetryDelays(); len(got) != 3 || got[0] != 30*time.Second || got[2] != 300*time.Second {
		t.Errorf("retry delays = %v, want 30s/120s/300s", got)
	}
	if cfg.Dispatch.PopTimeout() != 5*time.Second {
		t.Errorf("pop timeout = %v, want 5s", cfg.Dispatch.PopTimeout())
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  host: 0.0.0.0
  port: 9000
database:
  url: postgres://db/survey
provider:
  type: ses
  sender_email: surveys@example.com
  ses:
    region: eu-west-1
dispatch:
  rate_limit: 10
  rate_window_seconds: 30
  daily_quota: 500
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromEnv(path)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Provider.Type != "ses" || cfg.Provider.SES.Region != "eu-west-1" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Dispatch.RateLimit != 10 {
		t.Errorf("rate limit = %d", cfg.Dispatch.RateLimit)
	}
	if cfg.Dispatch.RateWindow() != 30*time.Second {
		t.Errorf("rate window = %v", cfg.Dispatch.RateWindow())
	}
	if cfg.Dispatch.DailyQuota != 500 {
		t.Errorf("daily quota = %d", cfg.Dispatch.DailyQuota)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  url: postgres://file/db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("DISPATCH_RATE_LIMIT", "7")

	cfg, err := LoadFromEnv(path)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Database.URL != "postgres://env/db" {
		t.Errorf("database url = %q, env should win", cfg.Database.URL)
	}
	if cfg.Dispatch.RateLimit != 7 {
		t.Errorf("rate limit = %d, want env override 7", cfg.Dispatch.RateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, true},
		{"bad provider type", func(c *Config) { c.Provider.Type = "outlook" }, true},
		{"zero rate limit", func(c *Config) { c.Dispatch.RateLimit = 0 }, true},
		{"negative retry delay", func(c *Config) { c.Dispatch.RetryDelaySeconds = []int{30, -1} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Database.URL = "postgres://localhost/x"
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
