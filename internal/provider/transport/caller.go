// Package transport provides a resilient JSON POST primitive used by provider
// adapters. It retries rate-limit and server errors with exponential backoff and
// knows nothing about providers or chat semantics.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/davidbz/chatrelay/internal/observability"
)

const (
	// DefaultTimeout bounds a single attempt when the request does not set one.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts allows one retry after the initial attempt.
	DefaultMaxAttempts = 2

	// DefaultBaseDelay is the wait before the first retry; it doubles per attempt.
	DefaultBaseDelay = 500 * time.Millisecond

	maxErrorBody = 4096
)

// Request describes one resilient POST.
type Request struct {
	URL         string
	Payload     any
	Headers     map[string]string
	Timeout     time.Duration
	MaxAttempts int
}

// Response is a successful (2xx) upstream response.
type Response struct {
	StatusCode int
	Body       []byte
	Attempts   int
}

// Caller performs JSON POSTs with bounded retries.
type Caller struct {
	httpClient *http.Client
	baseDelay  time.Duration
}

// Option configures a Caller.
type Option func(*Caller)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Caller) {
		c.httpClient = client
	}
}

// WithBaseDelay replaces the first retry delay.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Caller) {
		c.baseDelay = delay
	}
}

// NewCaller creates a new Caller.
func NewCaller(opts ...Option) *Caller {
	c := &Caller{
		httpClient: &http.Client{},
		baseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends req.Payload as JSON to req.URL. Status 429 and 5xx are retried
// until req.MaxAttempts attempts were made, waiting baseDelay * 2^attempt
// between them. Other non-2xx statuses, timeouts and network errors are
// returned without retry.
func (c *Caller) Post(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	logger := observability.FromContext(ctx)
	attempts := 0

	operation := func() (*Response, error) {
		attempts++

		resp, callErr := c.do(ctx, req, body, timeout)
		if callErr == nil {
			resp.Attempts = attempts
			return resp, nil
		}

		var statusErr *StatusError
		if errors.As(callErr, &statusErr) && statusErr.Retryable() {
			return nil, callErr
		}

		return nil, backoff.Permanent(callErr)
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("retrying request",
			observability.Int("attempt", attempts),
			observability.Int("max_attempts", maxAttempts),
			observability.Duration("backoff", wait),
			observability.Error(err))
	}

	resp, err := backoff.RetryNotifyWithData(operation, c.policy(ctx, maxAttempts), notify)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// policy builds the jitter-free exponential schedule for one Post.
func (c *Caller) policy(ctx context.Context, maxAttempts int) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.baseDelay
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxInterval = time.Hour
	expo.MaxElapsedTime = 0

	//nolint:gosec // maxAttempts is always positive here
	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(maxAttempts-1)), ctx)
}

// do performs a single attempt under its own deadline.
func (c *Caller) do(ctx context.Context, req Request, body []byte, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.wrapTransportError(ctx, attemptCtx, req.URL, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL, Body: string(errBody)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapTransportError(ctx, attemptCtx, req.URL, timeout, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func (c *Caller) wrapTransportError(parent, attemptCtx context.Context, url string, timeout time.Duration, err error) error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{URL: url, After: timeout}
	}
	return fmt.Errorf("request to %s failed: %w", url, err)
}

// WorstCase returns the longest time one Post can take with the default
// backoff: every attempt hitting its timeout plus every retry wait.
func WorstCase(timeout time.Duration, maxAttempts int) time.Duration {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	total := time.Duration(maxAttempts) * timeout
	wait := DefaultBaseDelay
	for range maxAttempts - 1 {
		total += wait
		wait *= 2
	}
	return total
}
