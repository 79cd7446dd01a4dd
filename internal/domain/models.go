package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a chat message.
type Role string

// Message roles understood by OpenAI-compatible providers.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a single chat message.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound chat request from the client.
type ChatRequest struct {
	Message     string        `json:"message"`
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
	UserID      string        `json:"userId,omitempty"`

	// malformed is set when the decoded "message" was present but not a JSON string.
	malformed bool
}

// UnmarshalJSON decodes a chat request without failing on a wrongly typed
// message, so that Validate can report it as client input.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message     json.RawMessage `json:"message"`
		ChatHistory []ChatMessage   `json:"chatHistory"`
		UserID      json.RawMessage `json:"userId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode chat request: %w", err)
	}

	*r = ChatRequest{
		ChatHistory: raw.ChatHistory,
	}

	// userId is opaque and unused; anything that is not a string is dropped.
	_ = json.Unmarshal(raw.UserID, &r.UserID)

	if len(raw.Message) == 0 || string(raw.Message) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Message, &r.Message); err != nil {
		r.malformed = true
	}

	return nil
}

// Validate checks the request shape before any provider is contacted.
func (r *ChatRequest) Validate() error {
	if r == nil {
		return &ClientInputError{Field: "message", Message: "request body is required"}
	}
	if r.malformed {
		return &ClientInputError{Field: "message", Message: "message must be a string"}
	}
	if r.Message == "" {
		return &ClientInputError{Field: "message", Message: "message is required"}
	}
	return nil
}

// Source tags which component produced a chat result.
type Source string

// Result sources. Provider sources share their value with the ProviderName.
const (
	SourceOpenRouter  Source = "openrouter"
	SourceOpenAI      Source = "openai"
	SourceOffline     Source = "offline"
	SourceFallback    Source = "fallback"
	SourceAPIKeyIssue Source = "api_key_issue"
	SourceRateLimited Source = "rate_limited"
	SourceTimeout     Source = "timeout"
)

// ChatResult is the single outbound answer for a chat request.
type ChatResult struct {
	Response  string `json:"response"`
	Source    Source `json:"source"`
	Error     string `json:"error,omitempty"`
	Status    int    `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ProviderName identifies a supported LLM provider.
type ProviderName string

// Supported providers, in default preference order.
const (
	ProviderOpenRouter ProviderName = "openrouter"
	ProviderOpenAI     ProviderName = "openai"
)

// minConfiguredKeyLength is the length a key must exceed to be reported as configured.
const minConfiguredKeyLength = 20

// placeholderKeys are values shipped in example env files that must never be used.
//
//nolint:gochecknoglobals // Fixed lookup table
var placeholderKeys = map[string]struct{}{
	"your_openrouter_api_key_here": {},
	"your_openai_api_key_here":     {},
	"your_api_key_here":            {},
	"your-api-key-here":            {},
	"sk-your-key-here":             {},
	"sk-...":                       {},
	"changeme":                     {},
}

// ProviderConfig is the immutable connection settings for one provider.
type ProviderConfig struct {
	Name         ProviderName
	APIKey       string
	Endpoint     string
	Model        string
	ExtraHeaders map[string]string
	Timeout      time.Duration
	MaxAttempts  int
}

// HasUsableKey reports whether the API key is present and not a placeholder.
func (c ProviderConfig) HasUsableKey() bool {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return false
	}
	_, placeholder := placeholderKeys[strings.ToLower(key)]
	return !placeholder
}

// IsProviderConfigured reports whether a provider should be shown as configured
// on the status endpoint: a usable key longer than 20 characters.
func IsProviderConfigured(cfg ProviderConfig) bool {
	return cfg.HasUsableKey() && len(strings.TrimSpace(cfg.APIKey)) > minConfiguredKeyLength
}
