package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/davidbz/chatrelay/internal/config"
)

// exposedHeaders are response headers browser clients may read.
//
//nolint:gochecknoglobals // Fixed header list
var exposedHeaders = []string{
	"X-Request-Id",
	"X-Trace-Id",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"Retry-After",
}

// CORS answers preflights and tags responses for the configured origins.
// A nil config disables it.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	policy := cors.New(corsOptions(cfg))

	return policy.Handler
}

func corsOptions(cfg *config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins:       cleanList(cfg.AllowedOrigins),
		AllowedMethods:       cleanList(cfg.AllowedMethods),
		AllowedHeaders:       cleanList(cfg.AllowedHeaders),
		ExposedHeaders:       exposedHeaders,
		AllowCredentials:     cfg.AllowCredentials,
		MaxAge:               cfg.MaxAge,
		OptionsSuccessStatus: http.StatusNoContent,
	}
}

// cleanList trims env list entries such as "a, b" and drops empty ones.
func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			cleaned = append(cleaned, value)
		}
	}
	return cleaned
}
