package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/autosales/internal/shared"
)

// incrementScript increments KEYS[1] up to ARGV[2] and arms a PEXPIRE of
// ARGV[1] milliseconds on keys without a TTL.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local ceiling = tonumber(ARGV[2])
if current >= ceiling then
  return current
end
current = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisCounter shares counters across service instances.
type RedisCounter struct {
	client redis.UniversalClient
}

// NewRedisCounter wraps an existing client. The caller owns its lifetime.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration, ceiling int64) (int64, error) {
	n, err := incrementScript.Run(ctx, c.client, []string{key}, ttl.Milliseconds(), ceiling).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: increment: %v", shared.ErrBackendUnavailable, err)
	}
	return n, nil
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get: %v", shared.ErrBackendUnavailable, err)
	}
	return n, nil
}

func (c *RedisCounter) Clear(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: clear: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}
