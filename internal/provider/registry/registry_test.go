package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/provider/registry"
)

// mockProvider is a mock implementation of domain.Provider for testing.
type mockProvider struct {
	name string
}

func (m *mockProvider) Complete(_ context.Context, _ []domain.ChatMessage) (string, error) {
	return "ok", nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should register provider successfully", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		err := reg.Register(ctx, &mockProvider{name: "openrouter"})
		require.NoError(t, err)

		registered, err := reg.Get(ctx, "openrouter")
		require.NoError(t, err)
		require.Equal(t, "openrouter", registered.Name())
	})

	t.Run("should return error when provider is nil", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), nil)
		require.ErrorContains(t, err, "provider cannot be nil")
	})

	t.Run("should return error when provider name is empty", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(context.Background(), &mockProvider{name: ""})
		require.ErrorContains(t, err, "provider name cannot be empty")
	})

	t.Run("should return error when provider already registered", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		require.NoError(t, reg.Register(ctx, &mockProvider{name: "openai"}))

		err := reg.Register(ctx, &mockProvider{name: "openai"})
		require.ErrorContains(t, err, "provider openai already registered")
	})
}

func TestRegistry_Get(t *testing.T) {
	t.Run("should return error when provider name is empty", func(t *testing.T) {
		reg := registry.NewRegistry()

		provider, err := reg.Get(context.Background(), "")
		require.Nil(t, provider)
		require.ErrorContains(t, err, "provider name cannot be empty")
	})

	t.Run("should return error when provider not found", func(t *testing.T) {
		reg := registry.NewRegistry()

		provider, err := reg.Get(context.Background(), "openai")
		require.Nil(t, provider)
		require.ErrorContains(t, err, "provider openai not found")
	})
}

func TestRegistry_List(t *testing.T) {
	t.Run("should return empty list when no providers registered", func(t *testing.T) {
		reg := registry.NewRegistry()

		names, err := reg.List(context.Background())
		require.NoError(t, err)
		require.Empty(t, names)
	})

	t.Run("should return sorted provider names", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		require.NoError(t, reg.Register(ctx, &mockProvider{name: "openrouter"}))
		require.NoError(t, reg.Register(ctx, &mockProvider{name: "openai"}))

		names, err := reg.List(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"openai", "openrouter"}, names)
	})
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Run("should handle concurrent registrations safely", func(t *testing.T) {
		reg := registry.NewRegistry()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_ = reg.Register(ctx, &mockProvider{name: fmt.Sprintf("provider-%d", n)})
				_, _ = reg.List(ctx)
			}(i)
		}
		wg.Wait()

		names, err := reg.List(ctx)
		require.NoError(t, err)
		require.Len(t, names, 20)
	})
}
