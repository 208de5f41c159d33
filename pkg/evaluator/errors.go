package evaluator

import (
	"fmt"
	"time"
)

// EvaluatorError represents a failed evaluator call. It never surfaces
// past the pool; aggregation treats it as one missing verdict.
type EvaluatorError struct {
	// Evaluator is the evaluator's configured name.
	Evaluator string

	// Message is the error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *EvaluatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluator %q: %s: %v", e.Evaluator, e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluator %q: %s", e.Evaluator, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *EvaluatorError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an evaluator call that exceeded the pool's
// time budget. It is distinct from EvaluatorError so the pool can tell
// slow from broken.
type TimeoutError struct {
	// Evaluator is the evaluator's configured name.
	Evaluator string

	// Timeout is the budget that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("evaluator %q timed out after %s", e.Evaluator, e.Timeout)
}
