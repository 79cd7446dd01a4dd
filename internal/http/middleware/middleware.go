package middleware

import (
	"net/http"

	"github.com/davidbz/chatrelay/internal/config"
)

// Middleware wraps an http.Handler with additional functionality.
// Middlewares can be composed using the Chain function.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middlewares into a single middleware.
// The first middleware is the outermost wrapper (executed first on request).
//
// Example:
//
//	chain := Chain(Recover(), CORS(corsConfig), Trace())
//	handler := chain(mux)
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// BuildMiddlewareChain composes the middleware chain for production.
// Order matters: Recover -> SecurityHeaders -> CORS -> Trace -> RateLimit.
func BuildMiddlewareChain(
	corsConfig *config.CORSConfig,
	rateLimitConfig *config.RateLimitConfig,
	counter Counter,
) Middleware {
	return Chain(
		Recover(),
		SecurityHeaders(),
		CORS(corsConfig),
		Trace(),
		RateLimit(rateLimitConfig, counter),
	)
}
