// Package config loads application configuration from a YAML file with
// environment variable overrides. A .env file is honored when present so
// local development does not require exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis connection for the daily send quota.
// When URL is empty the quota guard is disabled.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig selects and configures the outbound mail provider.
type ProviderConfig struct {
	// Type is "smtp" or "ses".
	Type        string `yaml:"type"`
	SenderName  string `yaml:"sender_name"`
	SenderEmail string `yaml:"sender_email"`
	ReplyTo     string `yaml:"reply_to"`

	SMTP SMTPConfig `yaml:"smtp"`
	SES  SESConfig  `yaml:"ses"`
}

// SMTPConfig holds settings for the local SMTP relay provider.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SESConfig holds AWS SES credentials for the API-based provider.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// DispatchConfig tunes the send pipeline.
type DispatchConfig struct {
	// RateLimit admits at most RateLimit sends per RateWindowSeconds.
	RateLimit         int   `yaml:"rate_limit"`
	RateWindowSeconds int   `yaml:"rate_window_seconds"`
	MaxRetries        int   `yaml:"max_retries"`
	RetryDelaySeconds []int `yaml:"retry_delay_seconds"`
	PopTimeoutMillis  int   `yaml:"pop_timeout_millis"`
	DailyQuota        int   `yaml:"daily_quota"` // 0 disables the Redis quota guard
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// LoadFromEnv reads the YAML file at path (if it exists), then applies
// environment variable overrides. A missing file is not an error; env-only
// deployments are supported.
func LoadFromEnv(path string) (*Config, error) {
	// Best effort; absence of .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Server.Host, "SERVER_HOST")
	overrideInt(&c.Server.Port, "SERVER_PORT")
	overrideString(&c.Database.URL, "DATABASE_URL")
	overrideString(&c.Redis.URL, "REDIS_URL")
	overrideString(&c.Provider.Type, "MAIL_PROVIDER")
	overrideString(&c.Provider.SenderEmail, "SENDER_EMAIL")
	overrideString(&c.Provider.SMTP.Host, "SMTP_HOST")
	overrideInt(&c.Provider.SMTP.Port, "SMTP_PORT")
	overrideString(&c.Provider.SMTP.Username, "SMTP_USERNAME")
	overrideString(&c.Provider.SMTP.Password, "SMTP_PASSWORD")
	overrideString(&c.Provider.SES.AccessKey, "AWS_ACCESS_KEY_ID")
	overrideString(&c.Provider.SES.SecretKey, "AWS_SECRET_ACCESS_KEY")
	overrideString(&c.Provider.SES.Region, "AWS_REGION")
	overrideInt(&c.Dispatch.RateLimit, "DISPATCH_RATE_LIMIT")
	overrideInt(&c.Dispatch.DailyQuota, "DISPATCH_DAILY_QUOTA")
	overrideString(&c.Logging.Level, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Provider.Type == "" {
		c.Provider.Type = "smtp"
	}
	if c.Provider.SMTP.Port == 0 {
		c.Provider.SMTP.Port = 25
	}
	if c.Provider.SES.Region == "" {
		c.Provider.SES.Region = "us-east-1"
	}
	if c.Dispatch.RateLimit == 0 {
		c.Dispatch.RateLimit = 30
	}
	if c.Dispatch.RateWindowSeconds == 0 {
		c.Dispatch.RateWindowSeconds = 60
	}
	if c.Dispatch.MaxRetries == 0 {
		c.Dispatch.MaxRetries = 3
	}
	if len(c.Dispatch.RetryDelaySeconds) == 0 {
		c.Dispatch.RetryDelaySeconds = []int{30, 120, 300}
	}
	if c.Dispatch.PopTimeoutMillis == 0 {
		c.Dispatch.PopTimeoutMillis = 5000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that required fields are present and consistent.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	switch c.Provider.Type {
	case "smtp", "ses":
	default:
		return fmt.Errorf("provider.type must be smtp or ses, got %q", c.Provider.Type)
	}
	if c.Dispatch.RateLimit < 1 {
		return fmt.Errorf("dispatch.rate_limit must be positive")
	}
	for _, d := range c.Dispatch.RetryDelaySeconds {
		if d <= 0 {
			return fmt.Errorf("dispatch.retry_delay_seconds entries must be positive")
		}
	}
	return nil
}

// RateWindow returns the rate limiter window as a duration.
func (c *DispatchConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

// PopTimeout returns the queue pop timeout as a duration.
func (c *DispatchConfig) PopTimeout() time.Duration {
	return time.Duration(c.PopTimeoutMillis) * time.Millisecond
}

// RetryDelays returns the retry backoff schedule as durations.
func (c *DispatchConfig) RetryDelays() []time.Duration {
	out := make([]time.Duration, len(c.RetryDelaySeconds))
	for i, s := range c.RetryDelaySeconds {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
