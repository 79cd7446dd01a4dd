package domain

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type timeoutError interface {
	Timeout() bool
}

// Classification is the user-facing resolution of a provider failure.
type Classification struct {
	Source Source
	// Pool is the response pool to pick from; nil when Message is fixed.
	Pool []string
	// Message is a fixed response, used when Pool is nil.
	Message string
	// Status is the upstream HTTP status, 0 when the failure had none.
	Status int
}

// Classify maps a provider failure to a source tag and response. Rules are
// checked in order: rate limit or quota, credentials, timeout, anything else.
func Classify(err error) Classification {
	status := StatusCode(err)
	text := ""
	if err != nil {
		text = err.Error()
	}

	switch {
	case status == http.StatusTooManyRequests || strings.Contains(text, "insufficient_quota"):
		return Classification{Source: SourceRateLimited, Pool: OfflineResponses, Status: status}
	case status == http.StatusUnauthorized ||
		strings.Contains(text, "invalid_api_key") ||
		strings.Contains(text, "account_deactivated"):
		return Classification{Source: SourceAPIKeyIssue, Message: APIKeyIssueResponse, Status: status}
	case IsTimeout(err):
		return Classification{Source: SourceTimeout, Pool: OfflineResponses, Status: status}
	default:
		return Classification{Source: SourceFallback, Pool: FallbackResponses, Status: status}
	}
}

// StatusCode extracts the upstream HTTP status from err, or 0.
func StatusCode(err error) int {
	var coder httpStatusCoder
	if errors.As(err, &coder) {
		return coder.HTTPStatusCode()
	}
	return 0
}

// IsTimeout reports whether err is a transport-level deadline failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}
