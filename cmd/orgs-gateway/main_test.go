package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/github-orgs-gateway/internal/testutil"
	"github.com/Sternrassler/github-orgs-gateway/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Upstream.BaseURL = baseURL
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestHealthEndpoint(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	a, err := newApp(context.Background(), testConfig(t, mock.URL()), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_WithoutRedis(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	a, err := newApp(context.Background(), testConfig(t, mock.URL()), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	a, err := newApp(context.Background(), testConfig(t, mock.URL()), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRepositoriesThroughApp(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPaginated("/orgs/acme/repos", [][]map[string]any{
		{testutil.Repo(1, "a", 3)},
		{testutil.Repo(2, "b", 8)},
	})

	cfg := testConfig(t, mock.URL())
	cfg.Upstream.Token = "ghp_test"

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/acme/repos/biggest", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "b", body["name"])
	assert.Equal(t, "Bearer ghp_test", mock.LastRequestHeader.Get("Authorization"))
}

func TestPageLimitThroughApp(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPaginated("/orgs/acme/repos", [][]map[string]any{
		{testutil.Repo(1, "a", 1)},
		{testutil.Repo(2, "b", 2)},
		{testutil.Repo(3, "c", 3)},
	})

	cfg := testConfig(t, mock.URL())
	cfg.Upstream.MaxPages = 2

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orgs/acme/repos", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestInboundLimiter(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	cfg := testConfig(t, mock.URL())
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.Limit = 1
	cfg.Server.RateLimit.Period = 60

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t, "https://api.github.com")
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	_, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRun_GracefulShutdown(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	cfg := testConfig(t, mock.URL())
	cfg.Server.Port = 0

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestServeCommandFlags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("config"))
	require.NotNil(t, serveCmd.Flags().Lookup("port"))

	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "serve" {
			found = true
		}
	}
	assert.True(t, found, "serve is registered on the root command")
}
