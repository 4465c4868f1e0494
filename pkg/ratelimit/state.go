// Package ratelimit records the upstream API's rate-limit state.
// It reads the X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Used,
// X-RateLimit-Reset and X-RateLimit-Resource headers of every response and
// keeps the latest state per resource in Redis, so every gateway instance
// sharing the credential reports the same budget.
//
// The tracker only observes. It never blocks or delays requests: when the
// budget is exhausted the upstream's own error is what callers see.
package ratelimit

import (
	"time"
)

// RedisKeyPrefix prefixes the per-resource hash holding the state.
const RedisKeyPrefix = "gh:rate_limit:"

// Hash fields of the per-resource state.
const (
	FieldLimit      = "limit"
	FieldRemaining  = "remaining"
	FieldUsed       = "used"
	FieldReset      = "reset"
	FieldLastUpdate = "last_update"
)

// DefaultResource is assumed when the upstream omits X-RateLimit-Resource.
const DefaultResource = "core"

// LowRemainingRatio marks the budget as low when less than this share of the limit remains.
const LowRemainingRatio = 0.1

// RateLimitState is the last observed rate-limit state of one upstream resource.
type RateLimitState struct {
	// Resource is the rate-limit bucket, e.g. "core" or "search".
	Resource string `json:"resource"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// Used is the number of requests made in the current window.
	Used int `json:"used"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was observed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is false when the budget is low or exhausted.
	IsHealthy bool `json:"is_healthy"`
}

// RedisKey returns the hash key for the state's resource.
func (s *RateLimitState) RedisKey() string {
	return RedisKeyPrefix + s.Resource
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsExhausted returns true if no requests remain in the window.
func (s *RateLimitState) IsExhausted() bool {
	return s.Remaining <= 0
}

// IsLow returns true if less than LowRemainingRatio of the limit remains.
func (s *RateLimitState) IsLow() bool {
	if s.Limit <= 0 {
		return s.IsExhausted()
	}
	return float64(s.Remaining) < float64(s.Limit)*LowRemainingRatio
}

// TimeUntilReset returns the duration until the window resets, or 0 if it already has.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from the current counters.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = !s.IsExhausted() && !s.IsLow()
}
