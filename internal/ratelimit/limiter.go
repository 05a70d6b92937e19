package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/odyssey-erp/autosales/internal/shared"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Policy    Policy
	Count     int64
	Remaining int64
	// RetryAfter is set on denial: whole seconds until the window ends,
	// at least one second.
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Err returns shared.ErrRateLimitExceeded for denied decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: policy %s", shared.ErrRateLimitExceeded, d.Policy.ID)
}

// Usage reports a key's consumption of the current window.
type Usage struct {
	Key       AdmissionKey `json:"key"`
	Policy    string       `json:"policy"`
	Limit     int64        `json:"limit"`
	Window    string       `json:"window"`
	Count     int64        `json:"count"`
	Remaining int64        `json:"remaining"`
	ResetAt   time.Time    `json:"reset_at"`
}

// Limiter applies fixed-window policies over a Counter.
type Limiter struct {
	table    *PolicyTable
	counter  Counter
	prefix   string
	now      func() time.Time
	observer Observer
}

// LimiterOption customises a Limiter.
type LimiterOption func(*Limiter)

// WithKeyPrefix namespaces counter keys.
func WithKeyPrefix(prefix string) LimiterOption {
	return func(l *Limiter) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithClock injects a clock.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithObserver receives every decision.
func WithObserver(o Observer) LimiterOption {
	return func(l *Limiter) {
		if o != nil {
			l.observer = o
		}
	}
}

// NewLimiter builds a limiter.
func NewLimiter(table *PolicyTable, counter Counter, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		table:    table,
		counter:  counter,
		prefix:   "ratelimit",
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policies exposes the resolution table.
func (l *Limiter) Policies() *PolicyTable { return l.table }

// Check counts one request for key on route and decides admission. The
// counter stops growing at limit+1, so denials never inflate it further.
func (l *Limiter) Check(ctx context.Context, key AdmissionKey, route string) (Decision, error) {
	policy := l.table.Resolve(route)
	now := l.now()
	index, resetAt := window(now, policy.Window)

	count, err := l.counter.IncrementWithExpiry(ctx, l.counterKey(policy, key, index), policy.Window, policy.Limit+1)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: check: %w", err)
	}

	d := Decision{
		Allowed:   count <= policy.Limit,
		Policy:    policy,
		Count:     count,
		Remaining: remaining(policy, count),
		ResetAt:   resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = retryAfter(now, resetAt)
	}
	l.observer.ObserveDecision(policy.ID, d.Allowed)
	return d, nil
}

// Usage reads the current window's counter without incrementing it.
func (l *Limiter) Usage(ctx context.Context, key AdmissionKey, route string) (Usage, error) {
	policy := l.table.Resolve(route)
	index, resetAt := window(l.now(), policy.Window)
	count, err := l.counter.Get(ctx, l.counterKey(policy, key, index))
	if err != nil {
		return Usage{}, fmt.Errorf("ratelimit: usage: %w", err)
	}
	if count > policy.Limit {
		count = policy.Limit
	}
	return Usage{
		Key:       key,
		Policy:    policy.ID,
		Limit:     policy.Limit,
		Window:    policy.Window.String(),
		Count:     count,
		Remaining: remaining(policy, count),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the current window's counter for key on route.
func (l *Limiter) Reset(ctx context.Context, key AdmissionKey, route string) error {
	policy := l.table.Resolve(route)
	index, _ := window(l.now(), policy.Window)
	if err := l.counter.Clear(ctx, l.counterKey(policy, key, index)); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}

func (l *Limiter) counterKey(p Policy, key AdmissionKey, index int64) string {
	return l.prefix + ":" + p.ID + ":" + string(key) + ":" + strconv.FormatInt(index, 10)
}

// window returns floor(now / size) and the instant that window ends.
func window(now time.Time, size time.Duration) (int64, time.Time) {
	index := now.UnixNano() / int64(size)
	return index, time.Unix(0, (index+1)*int64(size))
}

func retryAfter(now, resetAt time.Time) time.Duration {
	wait := resetAt.Sub(now)
	secs := wait / time.Second
	if wait%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}

func remaining(p Policy, count int64) int64 {
	if count >= p.Limit {
		return 0
	}
	return p.Limit - count
}
