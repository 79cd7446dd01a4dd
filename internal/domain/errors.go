package domain

import (
	"errors"
	"fmt"
)

// ErrNoProviders indicates that no provider is configured.
var ErrNoProviders = errors.New("no providers available")

// ErrEmptyContent indicates that every provider answered without usable text.
var ErrEmptyContent = errors.New("providers returned empty content")

// ClientInputError is a caller contract violation. It is the only error
// Handle surfaces; everything else resolves to a ChatResult.
type ClientInputError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ClientInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
