package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRequests = 10
	defaultWindow      = 15 * time.Minute
)

// Limiter is a fixed-window request limiter backed by Redis. Windows are
// scoped by (purpose, key) so each endpoint throttles independently.
type Limiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{
		client: client,
		max:    defaultMaxRequests,
		window: defaultWindow,
	}
}

// Allow counts a request against the (purpose, key) window and reports
// whether it is within the limit. The first request in a window sets the
// window's expiry.
func (l *Limiter) Allow(ctx context.Context, purpose, key string) (bool, error) {
	redisKey := limiterKey(purpose, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= l.max, nil
}

func limiterKey(purpose, key string) string {
	return "ratelimit:" + purpose + ":" + key
}
