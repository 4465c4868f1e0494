//go:build integration

package client

import (
	"context"
	"net/url"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/github-orgs-gateway/internal/testutil"
	"github.com/Sternrassler/github-orgs-gateway/pkg/pagination"
	"github.com/Sternrassler/github-orgs-gateway/pkg/ratelimit"
	"github.com/Sternrassler/github-orgs-gateway/pkg/upstream"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_TraversalRecordsRateLimits(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPaginated("/orgs/acme/repos", [][]map[string]any{
		{testutil.Repo(1, "a", 1)},
		{testutil.Repo(2, "b", 2)},
	})

	tracker := ratelimit.NewTracker(redisClient, zerolog.Nop())
	cfg := DefaultConfig("integration-token")
	cfg.BaseURL = mock.URL()
	c, err := New(cfg, tracker)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	driver := pagination.NewDriver(c, pagination.DefaultConfig())
	result, err := driver.Traverse(ctx, pagination.Request{
		SeedURL: c.URL("/orgs/acme/repos", url.Values{"per_page": {"1"}}),
		Subject: upstream.Subject{Noun: "Organization", Name: "acme"},
	}, pagination.NewCollectAll())
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(result.Items))
	}

	state, err := tracker.GetState(ctx, "core")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Limit != 5000 || state.Remaining != 4999 {
		t.Errorf("state = %+v, want limit 5000 remaining 4999", state)
	}
}

func TestIntegration_ExhaustedBudgetIsRecordedNotEnforced(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/orgs/acme/repos", testutil.NewRateLimitResponse())

	tracker := ratelimit.NewTracker(redisClient, zerolog.Nop())
	cfg := DefaultConfig("")
	cfg.BaseURL = mock.URL()
	c, err := New(cfg, tracker)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		page, err := c.FetchPage(ctx, c.URL("/orgs/acme/repos", nil))
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		if page.Status != 403 {
			t.Errorf("Status = %d, want 403 from upstream", page.Status)
		}
	}

	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("requests = %d, want 2 (tracker must not block)", got)
	}

	state, err := tracker.GetState(ctx, "core")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsExhausted() {
		t.Errorf("state = %+v, want exhausted", state)
	}
}
