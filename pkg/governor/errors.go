package governor

import "fmt"

// GovernanceError indicates the pipeline could not produce a governed
// response. It is carried inside the emitted result, never raised to
// the caller.
type GovernanceError struct {
	// Stage is the pipeline stage that failed (generate, score).
	Stage string

	// Cause is the underlying error.
	Cause error
}

// Error returns the error message.
func (e *GovernanceError) Error() string {
	return fmt.Sprintf("governance pipeline failed at %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *GovernanceError) Unwrap() error {
	return e.Cause
}

// PolicyViolationError describes a blocked response. Like
// GovernanceError it travels inside the result.
type PolicyViolationError struct {
	// Reason is the human-readable block reason.
	Reason string
}

// Error returns the error message.
func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("response blocked by governance: %s", e.Reason)
}
