// Package memory stores rate-limit counters in process memory.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

const cleanupInterval = time.Minute

// Counter implements fixed-window counters on top of go-cache.
type Counter struct {
	store *cache.Cache
}

// NewCounter creates an in-memory counter.
func NewCounter() *Counter {
	return &Counter{
		store: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Increment bumps the counter for key and returns the new value. The key
// expires one window after its first increment.
func (c *Counter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	// Add fails when the window is already open, which is expected.
	_ = c.store.Add(key, int64(0), window)

	value, err := c.store.IncrementInt64(key, 1)
	if err != nil {
		// The entry expired between Add and IncrementInt64; open a new window.
		c.store.Set(key, int64(1), window)
		return 1, nil
	}

	if value < 1 {
		return 0, fmt.Errorf("counter %s is corrupt", key)
	}

	return value, nil
}
