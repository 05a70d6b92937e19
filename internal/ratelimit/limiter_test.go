package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/autosales/internal/shared"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(at time.Time) *clock { return &clock{now: at} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingObserver struct {
	mu       sync.Mutex
	allowed  int
	denied   int
	degraded []bool
}

func (o *recordingObserver) ObserveDecision(_ string, allowed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if allowed {
		o.allowed++
	} else {
		o.denied++
	}
}

func (o *recordingObserver) SetDegraded(d bool) {
	o.mu.Lock()
	o.degraded = append(o.degraded, d)
	o.mu.Unlock()
}

func (o *recordingObserver) degradedHistory() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.degraded...)
}

// 30s into a 60s window.
var windowMid = time.Unix(1_700_000_010, 0)

func loginTable(t *testing.T) *PolicyTable {
	return mustTable(t, "100/60s", "/auth/login=5/60s")
}

func TestScenarioLoginLimit(t *testing.T) {
	clk := newClock(windowMid)
	obs := &recordingObserver{}
	l := NewLimiter(loginTable(t), NewMemoryCounter(WithMemoryClock(clk.Now)), WithClock(clk.Now), WithObserver(obs))
	key := DeriveKey("10.0.0.1", "")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Check(ctx, key, "/auth/login")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		assert.EqualValues(t, 5-i, d.Remaining)
	}

	d, err := l.Check(ctx, key, "/auth/login")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.ErrorIs(t, d.Err(), shared.ErrRateLimitExceeded)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
	assert.LessOrEqual(t, d.RetryAfter, 60*time.Second)
	assert.EqualValues(t, 0, d.Remaining)
	assert.Equal(t, 5, obs.allowed)
	assert.Equal(t, 1, obs.denied)

	other, err := l.Check(ctx, DeriveKey("10.0.0.2", ""), "/auth/login")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	def, err := l.Check(ctx, key, "/vehicles")
	require.NoError(t, err)
	assert.True(t, def.Allowed)
	assert.EqualValues(t, 100, def.Policy.Limit)
}

func TestRetryAfterRoundsUp(t *testing.T) {
	clk := newClock(windowMid.Add(500 * time.Millisecond))
	l := NewLimiter(mustTable(t, "1/60s", ""), NewMemoryCounter(WithMemoryClock(clk.Now)), WithClock(clk.Now))
	ctx := context.Background()

	_, err := l.Check(ctx, "k", "/x")
	require.NoError(t, err)
	d, err := l.Check(ctx, "k", "/x")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	clk.Advance(29*time.Second + 400*time.Millisecond)
	d, err = l.Check(ctx, "k", "/x")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)
}

func TestDenialsDoNotGrowCounter(t *testing.T) {
	clk := newClock(windowMid)
	counter := NewMemoryCounter(WithMemoryClock(clk.Now))
	l := NewLimiter(mustTable(t, "2/60s", ""), counter, WithClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := l.Check(ctx, "k", "/x")
		require.NoError(t, err)
	}
	usage, err := l.Usage(ctx, "k", "/x")
	require.NoError(t, err)
	assert.EqualValues(t, 2, usage.Count)
	assert.EqualValues(t, 0, usage.Remaining)

	index, _ := window(clk.Now(), time.Minute)
	raw, err := counter.Get(ctx, l.counterKey(l.table.Default(), "k", index))
	require.NoError(t, err)
	assert.EqualValues(t, 3, raw)
}

func TestWindowAdvanceResetsCleanly(t *testing.T) {
	clk := newClock(windowMid)
	l := NewLimiter(loginTable(t), NewMemoryCounter(WithMemoryClock(clk.Now)), WithClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := l.Check(ctx, "k", "/auth/login")
		require.NoError(t, err)
	}

	clk.Advance(30 * time.Second)
	for i := 1; i <= 5; i++ {
		d, err := l.Check(ctx, "k", "/auth/login")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d after reset", i)
	}
	d, err := l.Check(ctx, "k", "/auth/login")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 60*time.Second, d.RetryAfter)
}

func TestUsageAndReset(t *testing.T) {
	clk := newClock(windowMid)
	l := NewLimiter(loginTable(t), NewMemoryCounter(WithMemoryClock(clk.Now)), WithClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := l.Check(ctx, "k", "/auth/login")
		require.NoError(t, err)
	}
	usage, err := l.Usage(ctx, "k", "/auth/login")
	require.NoError(t, err)
	assert.EqualValues(t, 5, usage.Count)
	assert.Equal(t, "route:/auth/login", usage.Policy)
	assert.Equal(t, time.Unix(1_700_000_040, 0), usage.ResetAt)

	require.NoError(t, l.Reset(ctx, "k", "/auth/login"))
	d, err := l.Check(ctx, "k", "/auth/login")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 1, d.Count)
}

func TestRedisCounterScenario(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := newClock(windowMid)
	l := NewLimiter(loginTable(t), NewRedisCounter(client), WithClock(clk.Now), WithKeyPrefix("test"))
	ctx := context.Background()
	key := DeriveKey("10.0.0.1", "token")

	for i := 1; i <= 5; i++ {
		d, err := l.Check(ctx, key, "/auth/login")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	for i := 0; i < 3; i++ {
		d, err := l.Check(ctx, key, "/auth/login")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	}

	index, _ := window(clk.Now(), time.Minute)
	counterKey := "test:route:/auth/login:" + string(key) + ":" + strconv.FormatInt(index, 10)
	require.True(t, mr.Exists(counterKey))
	val, err := mr.Get(counterKey)
	require.NoError(t, err)
	assert.Equal(t, "6", val)
	ttl := mr.TTL(counterKey)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	usage, err := l.Usage(ctx, key, "/auth/login")
	require.NoError(t, err)
	assert.EqualValues(t, 5, usage.Count)

	require.NoError(t, l.Reset(ctx, key, "/auth/login"))
	assert.False(t, mr.Exists(counterKey))
}

func TestRedisCounterConcurrentIncrements(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	counter := NewRedisCounter(client)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := counter.IncrementWithExpiry(context.Background(), "k", time.Minute, 11)
			if err == nil && n <= 10 {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, admitted)
	n, err := counter.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.EqualValues(t, 11, n)
}

func TestMemoryCounterExpiryAndCleanup(t *testing.T) {
	clk := newClock(windowMid)
	c := NewMemoryCounter(WithMemoryClock(clk.Now))
	ctx := context.Background()

	n, err := c.IncrementWithExpiry(ctx, "a", time.Second, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, _ = c.IncrementWithExpiry(ctx, "b", time.Minute, 10)

	clk.Advance(time.Second)
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 0, got)

	c.Cleanup()
	assert.Equal(t, 1, c.Len())

	n, err = c.IncrementWithExpiry(ctx, "a", time.Second, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
