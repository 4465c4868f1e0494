package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	upstreamRateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_upstream_ratelimit_remaining",
		Help: "Requests remaining in the current upstream rate limit window by resource",
	}, []string{"resource"})

	upstreamRateLimitExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_upstream_ratelimit_exhausted_total",
		Help: "Responses observed with no upstream requests remaining by resource",
	}, []string{"resource"})
)

// ErrNoState is returned when no state was recorded for a resource yet.
var ErrNoState = errors.New("no rate limit state recorded")

// Recorder consumes the rate-limit headers of upstream responses.
type Recorder interface {
	UpdateFromHeaders(ctx context.Context, headers http.Header) error
}

// NopRecorder discards rate-limit headers. It is used when no Redis is configured.
type NopRecorder struct{}

// UpdateFromHeaders implements Recorder.
func (NopRecorder) UpdateFromHeaders(context.Context, http.Header) error {
	return nil
}

// Tracker stores the upstream rate-limit state in Redis.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// Ping checks the Redis connection.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.redis.Ping(ctx).Err()
}

// UpdateFromHeaders parses the rate-limit headers and stores the state.
// Responses without X-RateLimit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	lastUpdate, err := state.LastUpdate.MarshalText()
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, state.RedisKey(),
		FieldLimit, state.Limit,
		FieldRemaining, state.Remaining,
		FieldUsed, state.Used,
		FieldReset, state.ResetAt.Unix(),
		FieldLastUpdate, string(lastUpdate),
	)
	// Drop the state once it can no longer describe a live window.
	pipe.ExpireAt(ctx, state.RedisKey(), state.ResetAt.Add(time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	upstreamRateLimitRemaining.WithLabelValues(state.Resource).Set(float64(state.Remaining))

	switch {
	case state.IsExhausted():
		upstreamRateLimitExhaustedTotal.WithLabelValues(state.Resource).Inc()
		t.logger.Error().
			Str("resource", state.Resource).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("Upstream rate limit exhausted - requests will fail until reset")
	case state.IsLow():
		t.logger.Warn().
			Str("resource", state.Resource).
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("Upstream rate limit running low")
	default:
		t.logger.Debug().
			Str("resource", state.Resource).
			Int("remaining", state.Remaining).
			Msg("Upstream rate limit state updated")
	}

	return nil
}

// GetState returns the last recorded state of a resource, or ErrNoState.
func (t *Tracker) GetState(ctx context.Context, resource string) (*RateLimitState, error) {
	values, err := t.redis.HGetAll(ctx, RedisKeyPrefix+resource).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrNoState
	}

	return stateFromHash(resource, values)
}

// States returns the recorded state of every resource, sorted by resource.
func (t *Tracker) States(ctx context.Context) ([]RateLimitState, error) {
	var resources []string
	iter := t.redis.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		resources = append(resources, strings.TrimPrefix(iter.Val(), RedisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rate limit keys: %w", err)
	}
	sort.Strings(resources)

	states := make([]RateLimitState, 0, len(resources))
	for _, resource := range resources {
		state, err := t.GetState(ctx, resource)
		if errors.Is(err, ErrNoState) {
			continue
		}
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, nil
}

// ParseHeaders extracts the rate-limit state from response headers.
// It reports false when the response carries no rate-limit headers.
func ParseHeaders(headers http.Header, now time.Time) (*RateLimitState, bool, error) {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return nil, false, nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	limit, err := intHeader(headers, "X-RateLimit-Limit")
	if err != nil {
		return nil, false, err
	}

	used, err := intHeader(headers, "X-RateLimit-Used")
	if err != nil {
		return nil, false, err
	}

	resetAt := now
	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		epoch, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		resetAt = time.Unix(epoch, 0)
	}

	resource := headers.Get("X-RateLimit-Resource")
	if resource == "" {
		resource = DefaultResource
	}

	state := &RateLimitState{
		Resource:   resource,
		Limit:      limit,
		Remaining:  remaining,
		Used:       used,
		ResetAt:    resetAt,
		LastUpdate: now,
	}
	state.UpdateHealth()

	return state, true, nil
}

func intHeader(headers http.Header, name string) (int, error) {
	raw := headers.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s header: %w", name, err)
	}
	return v, nil
}

func stateFromHash(resource string, values map[string]string) (*RateLimitState, error) {
	state := &RateLimitState{Resource: resource}

	var err error
	if state.Limit, err = strconv.Atoi(values[FieldLimit]); err != nil {
		return nil, fmt.Errorf("parse stored limit: %w", err)
	}
	if state.Remaining, err = strconv.Atoi(values[FieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse stored remaining: %w", err)
	}
	if state.Used, err = strconv.Atoi(values[FieldUsed]); err != nil {
		return nil, fmt.Errorf("parse stored used: %w", err)
	}

	reset, err := strconv.ParseInt(values[FieldReset], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse stored reset: %w", err)
	}
	state.ResetAt = time.Unix(reset, 0)

	if raw := values[FieldLastUpdate]; raw != "" {
		if err := state.LastUpdate.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("parse stored last update: %w", err)
		}
	}

	state.UpdateHealth()
	return state, nil
}
