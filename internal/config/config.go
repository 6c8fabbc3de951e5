// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	envparse "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultBaseURL is the Phabricator instance used when none is configured.
const DefaultBaseURL = "https://phabricator.services.mozilla.com"

// Config holds the application configuration loaded from environment
// variables. CLI flags layer on top of it; flags win.
type Config struct {
	// Token is the Conduit API token from PHABRICATOR_TOKEN.
	Token string `env:"PHABRICATOR_TOKEN"`
	// BaseURL is the Phabricator instance from PHABRICATOR_BASE_URL.
	BaseURL string `env:"PHABRICATOR_BASE_URL"`
	// CookieOverride is a manual "name=value; name2=value2" session cookie
	// string from PHABRICATOR_COOKIES, used instead of browser extraction.
	CookieOverride string `env:"PHABRICATOR_COOKIES"`
	// FetchTimeout bounds each network call from PHABDIGEST_FETCH_TIMEOUT.
	FetchTimeout time.Duration `env:"PHABDIGEST_FETCH_TIMEOUT" envDefault:"30s"`
	// FetchConcurrency caps concurrent changeset fetches from
	// PHABDIGEST_FETCH_CONCURRENCY.
	FetchConcurrency int `env:"PHABDIGEST_FETCH_CONCURRENCY" envDefault:"4"`
	// LogLevel is the logging level from PHABDIGEST_LOG_LEVEL.
	LogLevel string `env:"PHABDIGEST_LOG_LEVEL" envDefault:"info"`
}

// HasToken returns true when a Conduit API token is configured.
func (c *Config) HasToken() bool {
	return c.Token != ""
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is folded in first; variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envparse.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("PHABDIGEST_FETCH_TIMEOUT must be positive, got %s", cfg.FetchTimeout)
	}
	if cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("PHABDIGEST_FETCH_CONCURRENCY must be at least 1, got %d", cfg.FetchConcurrency)
	}

	return cfg, nil
}
