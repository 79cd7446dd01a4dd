// Package redis stores rate-limit counters in Redis so that several relay
// instances share one budget per client.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/chatrelay/internal/observability"
)

const keyPrefix = "ratelimit:"

// Counter implements fixed-window counters with INCR and EXPIRE.
type Counter struct {
	client *redis.Client
}

// NewCounter creates a Redis-backed counter.
func NewCounter(client *redis.Client) (*Counter, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	return &Counter{client: client}, nil
}

// Increment bumps the counter for key and returns the new value. The key
// expires one window after its first increment.
func (c *Counter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := keyPrefix + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		observability.FromContext(ctx).Error("rate limit counter update failed",
			observability.String("key", redisKey),
			observability.Error(err))
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	return incr.Val(), nil
}

// Ping verifies connectivity at startup.
func (c *Counter) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
