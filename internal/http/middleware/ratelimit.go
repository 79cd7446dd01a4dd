package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/observability"
)

const (
	rateLimitedPrefix  = "/api/"
	rateLimitedMessage = "Too many requests, please try again later."
)

// Counter stores fixed-window request counts.
type Counter interface {
	// Increment bumps the count for key and returns the new value. A new
	// window starts at zero and lasts for window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit caps requests per client IP on /api/ routes using fixed windows.
// Counter failures let the request through.
func RateLimit(cfg *config.RateLimitConfig, counter Counter) Middleware {
	if cfg == nil || !cfg.Enabled || counter == nil || cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return rateLimit(cfg.Requests, cfg.Window, counter, time.Now)
}

func rateLimit(limit int, window time.Duration, counter Counter, now func() time.Time) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, rateLimitedPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			client := clientIP(r)

			windowStart := now().Truncate(window)
			reset := windowStart.Add(window)
			key := client + ":" + strconv.FormatInt(windowStart.Unix(), 10)

			count, err := counter.Increment(ctx, key, window)
			if err != nil {
				observability.FromContext(ctx).Warn("rate limit check failed, allowing request",
					observability.String("client", client),
					observability.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if count > int64(limit) {
				retryAfter := int(reset.Sub(now()).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				observability.FromContext(ctx).Warn("rate limit exceeded",
					observability.String("client", client),
					observability.Int64("count", count))

				writeJSONError(w, http.StatusTooManyRequests, rateLimitedMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
