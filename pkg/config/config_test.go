package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg, err := LoadFromBytes(nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeoutDuration())
	assert.Equal(t, 15*time.Second, cfg.PageTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeoutDuration())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, "https://api.github.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 0, cfg.Upstream.MaxPages)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.False(t, cfg.RedisEnabled())
	assert.Empty(t, cfg.Upstream.Token)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromBytes_TOML(t *testing.T) {
	data := []byte(`
[Server]
Port = 8080
RequestTimeout = 5

[Server.RateLimit]
Enabled = true
Limit = 20
Period = 2

[Upstream]
BaseURL = "https://ghe.example.com/api/v3"
PageTimeout = 3
MaxPages = 50

[Redis]
URL = "redis://localhost:6379/2"

[Logging]
Level = "debug"
Pretty = true
`)

	cfg, err := LoadFromBytes(data, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeoutDuration())
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, int64(20), cfg.Server.RateLimit.Limit)
	assert.Equal(t, 2*time.Second, cfg.RateLimitPeriodDuration())
	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.Upstream.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.PageTimeoutDuration())
	assert.Equal(t, 50, cfg.Upstream.MaxPages)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)

	// Unset keys keep their defaults.
	assert.Equal(t, "github-orgs-gateway/1.0", cfg.Upstream.UserAgent)
	assert.Equal(t, int64(30), cfg.Upstream.Timeout)
}

func TestLoadFromBytes_TokenIgnoredInFile(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("[Upstream]\nToken = \"from-file\"\n"), env(nil))
	require.NoError(t, err)
	assert.Empty(t, cfg.Upstream.Token)
}

func TestLoadFromBytes_Env(t *testing.T) {
	data := []byte("[Server]\nPort = 8080\n")

	cfg, err := LoadFromBytes(data, env(map[string]string{
		EnvAPIKey:    "ghp_secret",
		EnvPort:      "9090",
		EnvBaseURL:   "http://localhost:4000",
		EnvRedisURL:  "redis://cache:6379/0",
		EnvLogLevel:  "warn",
		EnvUserAgent: "acme-gateway/2.0",
	}))
	require.NoError(t, err)

	assert.Equal(t, "ghp_secret", cfg.Upstream.Token)
	assert.Equal(t, 9090, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "http://localhost:4000", cfg.Upstream.BaseURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "acme-gateway/2.0", cfg.Upstream.UserAgent)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		env    map[string]string
		errSub string
	}{
		{"unparsable toml", "[Server\nPort = 1", nil, "failed to parse TOML config"},
		{"port out of range", "[Server]\nPort = 70000", nil, "Port"},
		{"non-numeric port env", "", map[string]string{EnvPort: "http"}, "invalid PORT"},
		{"negative page timeout", "[Upstream]\nPageTimeout = -1", nil, "PageTimeout"},
		{"negative max pages", "[Upstream]\nMaxPages = -5", nil, "MaxPages"},
		{"relative base url", "[Upstream]\nBaseURL = \"api.github.com\"", nil, "BaseURL"},
		{"empty user agent", "[Upstream]\nUserAgent = \"\"", nil, "UserAgent"},
		{"bad redis url", "[Redis]\nURL = \"mysql://db\"", nil, "URL"},
		{"unknown log level", "", map[string]string{EnvLogLevel: "verbose"}, "Level"},
		{"enabled rate limit without limit", "[Server.RateLimit]\nEnabled = true\nLimit = 0", nil, "Limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.data), env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Upstream]\nMaxPages = 7\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Upstream.MaxPages)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
