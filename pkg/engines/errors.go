package engines

import (
	"errors"
	"fmt"
)

// Adapter errors.
var (
	// ErrMissingAPIKey indicates a key-authenticated engine was used
	// without a credential
	ErrMissingAPIKey = errors.New("API key is required but not configured")

	// ErrEmptyResponse indicates the provider returned a success status
	// with a zero-length payload even after bounded retries
	ErrEmptyResponse = errors.New("engine returned an empty audio payload")
)

// APIError is a non-2xx response from a remote engine. These are never
// retried.
type APIError struct {
	Engine     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Engine, e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure reaching a remote engine.
type NetworkError struct {
	Engine string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", e.Engine, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
