package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/chatrelay/internal/observability"
)

// Attempt outcomes reported to the OutcomeRecorder.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// ChatService turns a chat request into exactly one chat result, trying
// providers in preference order and degrading to canned responses.
type ChatService struct {
	registry ProviderRegistry
	router   Router
	selector Selector
	recorder OutcomeRecorder
	now      func() time.Time
}

// NewChatService creates a new chat service (DI constructor).
func NewChatService(
	registry ProviderRegistry,
	router Router,
	selector Selector,
	recorder OutcomeRecorder,
) *ChatService {
	return &ChatService{
		registry: registry,
		router:   router,
		selector: selector,
		recorder: recorder,
		now:      time.Now,
	}
}

// WithClock replaces the timestamp source. Used by tests.
func (s *ChatService) WithClock(now func() time.Time) *ChatService {
	s.now = now
	return s
}

// Handle resolves a chat request. The only error it returns is
// *ClientInputError; provider failures become canned results.
func (s *ChatService) Handle(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)

	names, err := s.router.Route(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoProviders) {
			logger.Warn("provider routing failed", observability.Error(err))
		}
		logger.Info("no provider configured, serving offline response")
		return s.result(s.selector.Pick(OfflineResponses), SourceOffline), nil
	}

	messages := BuildContext(req.ChatHistory, req.Message)

	var lastErr error
	for _, name := range names {
		text, callErr := s.attempt(ctx, name, messages)
		if callErr != nil {
			lastErr = callErr
			continue
		}
		if text == "" {
			continue
		}
		return s.result(text, Source(name)), nil
	}

	if lastErr == nil {
		lastErr = ErrEmptyContent
	}

	return s.degrade(ctx, lastErr), nil
}

// attempt calls one provider. It returns "" with a nil error for empty content.
func (s *ChatService) attempt(ctx context.Context, name string, messages []ChatMessage) (string, error) {
	ctx = observability.WithProvider(ctx, name)
	logger := observability.FromContext(ctx)

	provider, err := s.registry.Get(ctx, name)
	if err != nil {
		logger.Error("provider lookup failed", observability.Error(err))
		return "", fmt.Errorf("provider not found: %w", err)
	}

	started := time.Now()
	text, err := provider.Complete(ctx, messages)
	elapsed := time.Since(started)

	if err != nil {
		s.recorder.RecordAttempt(name, OutcomeError, elapsed)
		logger.Warn("provider call failed, trying next provider",
			observability.Error(err),
			observability.Int("status", StatusCode(err)),
			observability.Duration("elapsed", elapsed))
		return "", fmt.Errorf("%s completion failed: %w", name, err)
	}

	if strings.TrimSpace(text) == "" {
		s.recorder.RecordAttempt(name, OutcomeEmpty, elapsed)
		logger.Warn("provider returned empty content, trying next provider")
		return "", nil
	}

	s.recorder.RecordAttempt(name, OutcomeSuccess, elapsed)
	logger.Info("provider call succeeded", observability.Duration("elapsed", elapsed))

	return text, nil
}

// degrade converts the last failure into a canned result.
func (s *ChatService) degrade(ctx context.Context, err error) *ChatResult {
	c := Classify(err)

	response := c.Message
	if c.Pool != nil {
		response = s.selector.Pick(c.Pool)
	}

	observability.FromContext(ctx).Warn("all providers failed, serving canned response",
		observability.String("source", string(c.Source)),
		observability.Int("status", c.Status),
		observability.Error(err))

	res := s.result(response, c.Source)
	res.Error = err.Error()
	res.Status = c.Status

	return res
}

func (s *ChatService) result(response string, source Source) *ChatResult {
	s.recorder.RecordResult(string(source))

	return &ChatResult{
		Response:  response,
		Source:    source,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}
}

// NopRecorder discards outcomes.
type NopRecorder struct{}

// RecordAttempt implements OutcomeRecorder.
func (NopRecorder) RecordAttempt(string, string, time.Duration) {}

// RecordResult implements OutcomeRecorder.
func (NopRecorder) RecordResult(string) {}
