// Package openai provides an adapter for OpenAI-compatible chat completion APIs
// (OpenAI itself and OpenRouter). Payloads and responses use the official SDK
// types; the HTTP exchange goes through the retrying transport.Caller so that
// retry behaviour is identical for every provider.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/observability"
	"github.com/davidbz/chatrelay/internal/provider/transport"
)

// Fixed sampling settings sent with every completion.
const (
	maxTokens        = 150
	temperature      = 0.7
	presencePenalty  = 0.5
	frequencyPenalty = 0.5
)

// Poster is the resilient POST primitive the adapter depends on.
type Poster interface {
	Post(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Provider implements the domain.Provider interface for OpenAI-compatible APIs.
type Provider struct {
	config domain.ProviderConfig
	poster Poster
}

// NewProvider creates a new provider from an immutable config.
func NewProvider(config domain.ProviderConfig, poster Poster) (*Provider, error) {
	if !config.HasUsableKey() {
		return nil, fmt.Errorf("%s API key is required", config.Name)
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("%s endpoint is required", config.Name)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%s model is required", config.Name)
	}
	if poster == nil {
		return nil, errors.New("poster cannot be nil")
	}

	return &Provider{
		config: config,
		poster: poster,
	}, nil
}

// Complete sends the conversation and returns choices[0].message.content.
// A response without choices yields an empty string and no error.
func (p *Provider) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	ctx = observability.WithModel(ctx, p.config.Model)
	logger := observability.FromContext(ctx)
	logger.Debug("calling chat completions API")

	params := p.toSDKParams(messages)

	resp, err := p.poster.Post(ctx, transport.Request{
		URL:         p.config.Endpoint,
		Payload:     &params,
		Headers:     p.headers(),
		Timeout:     p.config.Timeout,
		MaxAttempts: p.config.MaxAttempts,
	})
	if err != nil {
		return "", fmt.Errorf("%s API call failed: %w", p.config.Name, err)
	}

	var completion openai.ChatCompletion
	if decodeErr := json.Unmarshal(resp.Body, &completion); decodeErr != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.config.Name, decodeErr)
	}

	logger.Debug("chat completions API call succeeded",
		observability.Int("attempts", resp.Attempts),
		observability.Int("prompt_tokens", int(completion.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(completion.Usage.CompletionTokens)),
	)

	if len(completion.Choices) == 0 {
		return "", nil
	}

	return completion.Choices[0].Message.Content, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return string(p.config.Name)
}

// Model returns the configured model identifier.
func (p *Provider) Model() string {
	return p.config.Model
}

func (p *Provider) headers() map[string]string {
	headers := make(map[string]string, len(p.config.ExtraHeaders)+1)
	for key, value := range p.config.ExtraHeaders {
		headers[key] = value
	}
	headers["Authorization"] = "Bearer " + p.config.APIKey
	return headers
}

// toSDKParams converts domain messages to SDK ChatCompletionNewParams.
func (p *Provider) toSDKParams(messages []domain.ChatMessage) openai.ChatCompletionNewParams {
	sdkMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case domain.RoleAssistant:
			sdkMessages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleSystem:
			sdkMessages[i] = openai.SystemMessage(msg.Content)
		default:
			// Unknown roles from client history are sent as user turns.
			sdkMessages[i] = openai.UserMessage(msg.Content)
		}
	}

	return openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(p.config.Model),
		Messages:         sdkMessages,
		MaxTokens:        openai.Int(maxTokens),
		Temperature:      openai.Float(temperature),
		PresencePenalty:  openai.Float(presencePenalty),
		FrequencyPenalty: openai.Float(frequencyPenalty),
	}
}
