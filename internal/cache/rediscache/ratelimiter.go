package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared across processes.
type RateLimiter struct {
	c *redis.Client
}

func NewRateLimiter(addr string) *RateLimiter {
	return NewRateLimiterFromClient(redis.NewClient(&redis.Options{Addr: addr}))
}

func NewRateLimiterFromClient(c *redis.Client) *RateLimiter {
	return &RateLimiter{c: c}
}

// Allow increments key and refreshes its TTL to window.
// It returns whether the count is still within limit, and the count.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, keyPrefix+key)
	pipe.Expire(ctx, keyPrefix+key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}
