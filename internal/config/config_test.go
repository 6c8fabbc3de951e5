package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"PHABRICATOR_TOKEN",
	"PHABRICATOR_BASE_URL",
	"PHABRICATOR_COOKIES",
	"PHABDIGEST_FETCH_TIMEOUT",
	"PHABDIGEST_FETCH_CONCURRENCY",
	"PHABDIGEST_LOG_LEVEL",
}

// isolateConfigEnv saves and unsets all config env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PHABRICATOR_TOKEN", "api-test123")
	t.Setenv("PHABRICATOR_BASE_URL", "https://phab.example.org")
	t.Setenv("PHABRICATOR_COOKIES", "phsid=abc; phusr=user")
	t.Setenv("PHABDIGEST_FETCH_TIMEOUT", "45s")
	t.Setenv("PHABDIGEST_FETCH_CONCURRENCY", "8")
	t.Setenv("PHABDIGEST_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "api-test123", cfg.Token)
	assert.Equal(t, "https://phab.example.org", cfg.BaseURL)
	assert.Equal(t, "phsid=abc; phusr=user", cfg.CookieOverride)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PHABRICATOR_TOKEN", "api-test123")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
}

// TestLoad_MissingToken verifies that a missing token does not fail Load;
// the CLI decides whether a token is required for the requested operation.
func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Token)
	assert.False(t, cfg.HasToken())
}

func TestLoad_TrailingSlashTrimmed(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PHABRICATOR_BASE_URL", "https://phab.example.org/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://phab.example.org", cfg.BaseURL)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PHABDIGEST_FETCH_TIMEOUT", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}

func TestLoad_NegativeTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PHABDIGEST_FETCH_TIMEOUT", "-5s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PHABDIGEST_FETCH_TIMEOUT")
}

func TestLoad_ZeroConcurrency(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PHABDIGEST_FETCH_CONCURRENCY", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PHABDIGEST_FETCH_CONCURRENCY")
}

func TestHasToken(t *testing.T) {
	assert.True(t, (&Config{Token: "x"}).HasToken())
	assert.False(t, (&Config{}).HasToken())
}
