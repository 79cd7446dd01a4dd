package domain

import (
	"context"
	"time"
)

// Provider represents an LLM completion service.
type Provider interface {
	// Complete sends the conversation and returns the reply text.
	// An empty string with a nil error means the provider answered without content.
	Complete(ctx context.Context, messages []ChatMessage) (string, error)

	// Name returns the provider identifier.
	Name() string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)
}

// Router determines which providers to try for a chat request.
type Router interface {
	// Route returns provider names in the order they should be attempted.
	Route(ctx context.Context) ([]string, error)
}

// Selector picks one canned response from a pool.
type Selector interface {
	Pick(pool []string) string
}

// OutcomeRecorder receives chat outcomes for metrics.
type OutcomeRecorder interface {
	// RecordAttempt records one provider call.
	RecordAttempt(provider, outcome string, elapsed time.Duration)

	// RecordResult records the source tag of a final chat result.
	RecordResult(source string)
}
