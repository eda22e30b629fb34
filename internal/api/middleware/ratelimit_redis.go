package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window Limiter shared through Redis
type RedisLimiter struct {
	client   redis.Cmdable
	requests int64
	window   time.Duration
}

// NewRedisLimiter allows requests per window for each key
func NewRedisLimiter(client redis.Cmdable, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, requests: int64(requests), window: window}
}

// Allow increments the key's counter. The first hit of a window sets its
// expiry, so the window does not slide with every request.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "rl:" + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit pipeline: %w", err)
	}
	return incr.Val() <= l.requests, nil
}
