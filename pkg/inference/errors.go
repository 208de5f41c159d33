package inference

import (
	"fmt"
	"time"
)

// InferenceError represents a failed generation call.
type InferenceError struct {
	// Provider is the adapter that produced the error.
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable).
	StatusCode int

	// Message is the error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("inference provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inference provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *InferenceError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents a generation call that exceeded its deadline.
type TimeoutError struct {
	// Provider is the adapter where the timeout occurred.
	Provider string

	// Timeout is the configured deadline.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("inference provider %q request timeout after %s", e.Provider, e.Timeout)
}
