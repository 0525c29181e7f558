package ratelimit

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed-window counters across instances. The counter
// key embeds the window start, so rollover needs no cleanup beyond the TTL.
type RedisLimiter struct {
	client *redisv9.Client
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redisv9.Client, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) CheckAndIncrement(ctx context.Context, key string, limit int) error {
	now := l.now()
	start := windowStart(now, l.window)
	counterKey := fmt.Sprintf("ratelimit:%s:%d", key, start.Unix())

	// INCR is atomic on the server, so concurrent requests observe distinct
	// counts and exactly limit of them are admitted.
	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return fmt.Errorf("ratelimit incr failed: %w", err)
	}
	if count == 1 {
		// Keep the key one extra window so in-flight checks near the
		// boundary never see a vanished counter.
		if err := l.client.Expire(ctx, counterKey, 2*l.window).Err(); err != nil {
			return fmt.Errorf("ratelimit expire failed: %w", err)
		}
	}

	if count > int64(limit) {
		return &LimitError{RetryAfter: start.Add(l.window).Sub(now)}
	}
	return nil
}
