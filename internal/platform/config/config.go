// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Remote   RemoteConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RemoteConfig holds settings for the progress authority.
type RemoteConfig struct {
	BaseURL string
	Token   string
	Timeout int // seconds
	// FixturePath points at a catalog directory served by the in-process
	// authority instead of the HTTP one.
	FixturePath string
}

// TimeoutDuration returns Timeout as a duration.
func (r RemoteConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL
// disables the event audit trail.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool // apply embedded migrations on startup
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL
// disables the summary cache.
type CacheConfig struct {
	URL        string
	SummaryTTL int // seconds
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Remote: RemoteConfig{
			BaseURL:     strings.TrimRight(envStr("LEARN_REMOTE_BASE_URL", "https://codingplatform-backend.onrender.com"), "/"),
			Token:       envStr("LEARN_REMOTE_TOKEN", ""),
			Timeout:     envInt("LEARN_REMOTE_TIMEOUT", 15),
			FixturePath: envStr("LEARN_REMOTE_FIXTURE_PATH", ""),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 2),
			Migrate:  envBool("LEARN_DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL:        envStr("LEARN_CACHE_URL", ""),
			SummaryTTL: envInt("LEARN_CACHE_SUMMARY_TTL", 60),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Remote.Token == "" && !c.UseFixture() {
		return fmt.Errorf("LEARN_REMOTE_TOKEN is required unless LEARN_REMOTE_FIXTURE_PATH is set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("LEARN_REMOTE_TIMEOUT must be positive, got %d", c.Remote.Timeout)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// UseFixture returns true if the in-process fixture authority is configured.
func (c *Config) UseFixture() bool {
	return c.Remote.FixturePath != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
