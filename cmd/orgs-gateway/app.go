package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/sync/errgroup"

	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/Sternrassler/github-orgs-gateway/pkg/api"
	"github.com/Sternrassler/github-orgs-gateway/pkg/client"
	"github.com/Sternrassler/github-orgs-gateway/pkg/config"
	"github.com/Sternrassler/github-orgs-gateway/pkg/gateway"
	"github.com/Sternrassler/github-orgs-gateway/pkg/logging"
	"github.com/Sternrassler/github-orgs-gateway/pkg/pagination"
	"github.com/Sternrassler/github-orgs-gateway/pkg/ratelimit"
)

const (
	redisPingTimeout  = 5 * time.Second
	limiterKeyPrefix  = "gateway:limiter"
	readHeaderTimeout = 10 * time.Second
)

// app is the assembled gateway process.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	upstream *client.Client
	redis    *redis.Client
	handler  http.Handler
}

// newApp connects to Redis when configured and wires the client, the
// service and the router.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var (
		recorder   ratelimit.Recorder = ratelimit.NopRecorder{}
		rateLimits api.RateLimitReader
		ready      api.Pinger
	)

	if cfg.RedisEnabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)

		tracker := ratelimit.NewTracker(a.redis, logging.NewLogger("ratelimit"))

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err = tracker.Ping(pingCtx)
		cancel()
		if err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")

		recorder, rateLimits, ready = tracker, tracker, tracker
	}

	upstreamCfg := client.DefaultConfig(cfg.Upstream.Token)
	upstreamCfg.BaseURL = cfg.Upstream.BaseURL
	upstreamCfg.UserAgent = cfg.Upstream.UserAgent
	upstreamCfg.APIVersion = cfg.Upstream.APIVersion
	upstreamCfg.Timeout = cfg.UpstreamTimeoutDuration()

	upstream, err := client.New(upstreamCfg, recorder)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	a.upstream = upstream

	inbound, err := a.inboundLimiter()
	if err != nil {
		a.Close()
		return nil, err
	}

	service := gateway.NewService(upstream, pagination.Config{
		PageTimeout: cfg.PageTimeoutDuration(),
		MaxPages:    cfg.Upstream.MaxPages,
	})

	a.handler = api.NewRouter(api.Options{
		Gateway:        service,
		RateLimits:     rateLimits,
		Ready:          ready,
		Limiter:        inbound,
		RequestTimeout: cfg.RequestTimeoutDuration(),
		Logger:         logging.NewLogger("api"),
	})

	return a, nil
}

// inboundLimiter shares its counters through Redis when available.
func (a *app) inboundLimiter() (*limiter.Limiter, error) {
	rl := a.cfg.Server.RateLimit
	if !rl.Enabled {
		return nil, nil
	}

	rate := limiter.Rate{Period: a.cfg.RateLimitPeriodDuration(), Limit: rl.Limit}

	if a.redis == nil {
		return limiter.New(memory.NewStore(), rate), nil
	}

	store, err := sredis.NewStoreWithOptions(a.redis, limiter.StoreOptions{
		Prefix:          limiterKeyPrefix,
		CleanUpInterval: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return limiter.New(store, rate), nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *app) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeoutDuration())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the upstream client and the Redis connection.
func (a *app) Close() {
	if a.upstream != nil {
		a.upstream.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
