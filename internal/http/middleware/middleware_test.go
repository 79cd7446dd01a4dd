package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/cache/memory"
	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/http/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain(t *testing.T) {
	t.Run("should apply the first middleware outermost", func(t *testing.T) {
		var order []string
		tag := func(name string) middleware.Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		handler := middleware.Chain(tag("a"), tag("b"), tag("c"))(okHandler())
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, []string{"a", "b", "c"}, order)
	})
}

func TestRecover(t *testing.T) {
	t.Run("should convert panics into a 500 JSON body", func(t *testing.T) {
		handler := middleware.Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Equal(t, "Internal server error", body["error"])
	})

	t.Run("should pass through when nothing panics", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.Recover()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Run("should set security headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.SecurityHeaders()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		require.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	})
}

func TestTrace(t *testing.T) {
	t.Run("should set trace and request id headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.Trace()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.NotEmpty(t, w.Header().Get("X-Trace-Id"))
		require.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("should keep an inbound request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-Id", "req-123")

		w := httptest.NewRecorder()
		middleware.Trace()(okHandler()).ServeHTTP(w, req)

		require.Equal(t, "req-123", w.Header().Get("X-Request-Id"))
	})
}

func TestCORS(t *testing.T) {
	t.Run("should answer preflight requests for allowed origins", func(t *testing.T) {
		cfg := &config.CORSConfig{
			AllowedOrigins: []string{"https://app.example"},
			AllowedMethods: []string{http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         60,
		}

		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := httptest.NewRecorder()
		middleware.CORS(cfg)(okHandler()).ServeHTTP(w, req)

		require.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should trim configured origins and answer preflight with 204", func(t *testing.T) {
		cfg := &config.CORSConfig{
			AllowedOrigins: []string{" https://app.example", ""},
			AllowedMethods: []string{"GET", " POST"},
			AllowedHeaders: []string{"Content-Type"},
		}

		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := httptest.NewRecorder()
		middleware.CORS(cfg)(okHandler()).ServeHTTP(w, req)

		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should expose request id and rate limit headers", func(t *testing.T) {
		cfg := &config.CORSConfig{AllowedOrigins: []string{"https://app.example"}}

		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Origin", "https://app.example")

		w := httptest.NewRecorder()
		middleware.CORS(cfg)(okHandler()).ServeHTTP(w, req)

		exposed := w.Header().Get("Access-Control-Expose-Headers")
		require.Contains(t, exposed, "X-Request-Id")
		require.Contains(t, exposed, "X-Ratelimit-Remaining")
		require.Contains(t, exposed, "Retry-After")
	})

	t.Run("should be a no-op without config", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.CORS(nil)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

type failingCounter struct{}

func (failingCounter) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (k *keyRecorder) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, key)
	return 1, nil
}

func TestRateLimit(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 12, 0, 30, 0, time.UTC)
	clock := func() time.Time { return fixed }

	serve := func(handler http.Handler, path, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("should reject requests over the limit with 429", func(t *testing.T) {
		handler := middleware.NewRateLimitWithClock(2, time.Minute, memory.NewCounter(), clock)(okHandler())

		require.Equal(t, http.StatusOK, serve(handler, "/api/chat", "10.0.0.1:1234").Code)
		require.Equal(t, http.StatusOK, serve(handler, "/api/chat", "10.0.0.1:1234").Code)

		w := serve(handler, "/api/chat", "10.0.0.1:1234")
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		require.Equal(t, "30", w.Header().Get("Retry-After"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.NotEmpty(t, body["error"])
	})

	t.Run("should count clients separately", func(t *testing.T) {
		handler := middleware.NewRateLimitWithClock(1, time.Minute, memory.NewCounter(), clock)(okHandler())

		require.Equal(t, http.StatusOK, serve(handler, "/api/chat", "10.0.0.1:1234").Code)
		require.Equal(t, http.StatusOK, serve(handler, "/api/chat", "10.0.0.2:1234").Code)
		require.Equal(t, http.StatusTooManyRequests, serve(handler, "/api/chat", "10.0.0.1:5678").Code)
	})

	t.Run("should not limit paths outside /api/", func(t *testing.T) {
		handler := middleware.NewRateLimitWithClock(1, time.Minute, memory.NewCounter(), clock)(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, serve(handler, "/health", "10.0.0.1:1234").Code)
		}
	})

	t.Run("should set limit headers on allowed requests", func(t *testing.T) {
		handler := middleware.NewRateLimitWithClock(5, time.Minute, memory.NewCounter(), clock)(okHandler())

		w := serve(handler, "/api/status", "10.0.0.1:1234")

		require.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
		require.Equal(t, "1735732860", w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("should key counters by client and window", func(t *testing.T) {
		counter := &keyRecorder{}
		handler := middleware.NewRateLimitWithClock(5, time.Minute, counter, clock)(okHandler())

		serve(handler, "/api/chat", "10.0.0.1:1234")

		require.Equal(t, []string{"10.0.0.1:1735732800"}, counter.keys)
	})

	t.Run("should allow requests when the counter fails", func(t *testing.T) {
		handler := middleware.NewRateLimitWithClock(1, time.Minute, failingCounter{}, clock)(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, serve(handler, "/api/chat", "10.0.0.1:1234").Code)
		}
	})

	t.Run("should be a no-op when disabled", func(t *testing.T) {
		cfg := &config.RateLimitConfig{Enabled: false, Requests: 1, Window: time.Minute}
		handler := middleware.RateLimit(cfg, memory.NewCounter())(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, serve(handler, "/api/chat", "10.0.0.1:1234").Code)
		}
	})
}
