package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local Counter.
type MemoryCounter struct {
	mu           sync.Mutex
	entries      map[string]*memoryEntry
	now          func() time.Time
	cleanupEvery time.Duration
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryOption customises a MemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithMemoryClock injects a clock.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCounter) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCleanupEvery sets the janitor interval.
func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(c *MemoryCounter) { c.cleanupEvery = d }
}

// NewMemoryCounter returns an empty counter.
func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	c := &MemoryCounter{
		entries:      make(map[string]*memoryEntry),
		now:          time.Now,
		cleanupEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCounter) IncrementWithExpiry(_ context.Context, key string, ttl time.Duration, ceiling int64) (int64, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok || !now.Before(ent.expiresAt) {
		ent = &memoryEntry{expiresAt: now.Add(ttl)}
		c.entries[key] = ent
	}
	if ent.count < ceiling {
		ent.count++
	}
	return ent.count, nil
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok || !now.Before(ent.expiresAt) {
		return 0, nil
	}
	return ent.count, nil
}

func (c *MemoryCounter) Clear(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCounter) Ping(context.Context) error { return nil }

// Len returns the number of tracked keys, expired ones included.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup evicts expired entries.
func (c *MemoryCounter) Cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, ent := range c.entries {
		if !now.Before(ent.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// StartJanitor evicts expired entries periodically until ctx is done.
func (c *MemoryCounter) StartJanitor(ctx context.Context) {
	if c.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}
