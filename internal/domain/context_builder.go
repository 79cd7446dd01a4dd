package domain

// HistoryWindow is the number of most recent history messages sent to a provider.
const HistoryWindow = 10

// SystemPrompt is always the first message of every conversation sent upstream.
const SystemPrompt = "You are a friendly, upbeat assistant inside a mobile app. " +
	"Keep answers short (two or three sentences), warm and easy to read on a phone. " +
	"Never share personal data, do not give medical, legal or financial advice, " +
	"and politely decline harmful or inappropriate requests."

// BuildContext assembles the messages for a provider call: the system prompt,
// the last HistoryWindow entries of history in their original order, then the
// new user message. The history slice is never modified or aliased.
func BuildContext(history []ChatMessage, message string) []ChatMessage {
	start := 0
	if len(history) > HistoryWindow {
		start = len(history) - HistoryWindow
	}
	window := history[start:]

	messages := make([]ChatMessage, 0, len(window)+2)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: SystemPrompt})
	messages = append(messages, window...)
	messages = append(messages, ChatMessage{Role: RoleUser, Content: message})

	return messages
}
