package ratelimit

import (
	"context"
	"time"
)

// Counter is a fixed-window counter backend.
type Counter interface {
	// IncrementWithExpiry atomically adds one to key unless it already holds
	// ceiling, starting the ttl on first increment, and returns the count.
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration, ceiling int64) (int64, error)
	// Get returns the current count, zero when absent or expired.
	Get(ctx context.Context, key string) (int64, error)
	// Clear removes key.
	Clear(ctx context.Context, key string) error
	// Ping reports backend health.
	Ping(ctx context.Context) error
}

// Observer receives admission signals. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveDecision(policy string, allowed bool)
	SetDegraded(degraded bool)
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(string, bool) {}
func (nopObserver) SetDegraded(bool)             {}
