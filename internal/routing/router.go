package routing

import (
	"context"
	"fmt"
	"slices"

	"github.com/davidbz/chatrelay/internal/domain"
)

// DefaultPreference is the order providers are attempted in.
//
//nolint:gochecknoglobals // Fixed preference order
var DefaultPreference = []string{
	string(domain.ProviderOpenRouter),
	string(domain.ProviderOpenAI),
}

// PreferenceRouter orders registered providers by a fixed preference list.
type PreferenceRouter struct {
	registry   domain.ProviderRegistry
	preference []string
}

// NewRouter creates a router using DefaultPreference.
func NewRouter(registry domain.ProviderRegistry) *PreferenceRouter {
	return NewPreferenceRouter(registry, DefaultPreference)
}

// NewPreferenceRouter creates a router with an explicit preference order.
func NewPreferenceRouter(registry domain.ProviderRegistry, preference []string) *PreferenceRouter {
	return &PreferenceRouter{
		registry:   registry,
		preference: slices.Clone(preference),
	}
}

// Route returns registered provider names in preference order. Registered
// providers missing from the preference list are appended in registry order.
func (r *PreferenceRouter) Route(ctx context.Context) ([]string, error) {
	registered, err := r.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	if len(registered) == 0 {
		return nil, domain.ErrNoProviders
	}

	ordered := make([]string, 0, len(registered))
	for _, name := range r.preference {
		if slices.Contains(registered, name) {
			ordered = append(ordered, name)
		}
	}
	for _, name := range registered {
		if !slices.Contains(ordered, name) {
			ordered = append(ordered, name)
		}
	}

	return ordered, nil
}
