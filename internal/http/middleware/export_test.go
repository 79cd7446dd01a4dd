package middleware

import (
	"time"
)

// NewRateLimitWithClock exposes the clock-driven constructor to tests.
func NewRateLimitWithClock(limit int, window time.Duration, counter Counter, now func() time.Time) Middleware {
	return rateLimit(limit, window, counter, now)
}
