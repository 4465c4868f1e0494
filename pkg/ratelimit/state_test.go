package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_RedisKey(t *testing.T) {
	state := &RateLimitState{Resource: "search"}
	if got := state.RedisKey(); got != "gh:rate_limit:search" {
		t.Errorf("RedisKey() = %q, want %q", got, "gh:rate_limit:search")
	}
}

func TestRateLimitState_Health(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		remaining int
		exhausted bool
		low       bool
		healthy   bool
	}{
		{"plenty left", 5000, 4990, false, false, true},
		{"exactly ten percent", 5000, 500, false, false, true},
		{"below ten percent", 5000, 499, false, true, false},
		{"one left", 60, 1, false, true, false},
		{"exhausted", 60, 0, true, true, false},
		{"unknown limit with budget", 0, 10, false, false, true},
		{"unknown limit exhausted", 0, 0, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Limit: tt.limit, Remaining: tt.remaining}
			state.UpdateHealth()

			if got := state.IsExhausted(); got != tt.exhausted {
				t.Errorf("IsExhausted() = %v, want %v", got, tt.exhausted)
			}
			if got := state.IsLow(); got != tt.low {
				t.Errorf("IsLow() = %v, want %v", got, tt.low)
			}
			if state.IsHealthy != tt.healthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.healthy)
			}
		})
	}
}

func TestRateLimitState_IsStale(t *testing.T) {
	tests := []struct {
		name       string
		lastUpdate time.Time
		maxAge     time.Duration
		expected   bool
	}{
		{"fresh", time.Now(), time.Minute, false},
		{"stale", time.Now().Add(-2 * time.Minute), time.Minute, true},
		{"zero time", time.Time{}, time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{LastUpdate: tt.lastUpdate}
			if got := state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitState_TimeUntilReset(t *testing.T) {
	future := &RateLimitState{ResetAt: time.Now().Add(30 * time.Second)}
	if d := future.TimeUntilReset(); d <= 25*time.Second || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want about 30s", d)
	}

	past := &RateLimitState{ResetAt: time.Now().Add(-time.Minute)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for a past reset", d)
	}
}
