package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const verifyKeyPrefix = "rl:verify:"

// RedisLimiter is a fixed-window counter shared across instances. The counter
// key carries the window TTL, set atomically with the first increment.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := verifyKeyPrefix + key

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	n := int(count.Val())
	if n > l.limit {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return &Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return &Result{Allowed: true, Remaining: l.limit - n}, nil
}
