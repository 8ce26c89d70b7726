package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a hit and returns {count, pttl}. The expiry is
// only set by the hit that creates the key, so the window does not slide.
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

var errNoRedisClient = errors.New("rate limit: redis client not configured")

// RedisFixedWindowLimiter shares scan and API budgets across replicas.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l.client == nil {
		return Decision{}, errNoRedisClient
	}
	if key == "" {
		key = "unknown"
	}
	if window < time.Millisecond {
		window = time.Second
	}

	vals, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: want 2 values, got %d", len(vals))
	}

	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond
	if ttl <= 0 {
		ttl = window
	}
	d := Decision{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  limit - int(count),
		ResetAfter: ttl,
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
