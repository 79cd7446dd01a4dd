package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/domain"
)

func makeHistory(n int) []domain.ChatMessage {
	history := make([]domain.ChatMessage, n)
	for i := range history {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history[i] = domain.ChatMessage{Role: role, Content: fmt.Sprintf("message %d", i)}
	}
	return history
}

func TestBuildContext(t *testing.T) {
	t.Run("should wrap empty history with system prompt and user message", func(t *testing.T) {
		messages := domain.BuildContext(nil, "Hello")

		require.Equal(t, []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: domain.SystemPrompt},
			{Role: domain.RoleUser, Content: "Hello"},
		}, messages)
	})

	t.Run("should include all entries of a short history in order", func(t *testing.T) {
		history := makeHistory(4)

		messages := domain.BuildContext(history, "next")

		require.Len(t, messages, 6)
		require.Equal(t, domain.RoleSystem, messages[0].Role)
		require.Equal(t, history, messages[1:5])
		require.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "next"}, messages[5])
	})

	t.Run("should keep exactly the last ten entries of a long history", func(t *testing.T) {
		for _, n := range []int{10, 11, 25} {
			history := makeHistory(n)

			messages := domain.BuildContext(history, "next")

			require.Len(t, messages, domain.HistoryWindow+2, "history length %d", n)
			require.Equal(t, domain.SystemPrompt, messages[0].Content)
			require.Equal(t, history[n-domain.HistoryWindow:], messages[1:domain.HistoryWindow+1])
			require.Equal(t, "next", messages[len(messages)-1].Content)
		}
	})

	t.Run("should not mutate the caller history", func(t *testing.T) {
		history := makeHistory(12)
		snapshot := append([]domain.ChatMessage(nil), history...)

		messages := domain.BuildContext(history, "next")
		messages[1].Content = "changed"

		require.Equal(t, snapshot, history)
	})
}
