package policy

import "fmt"

// ConfigurationError indicates a policy document failed schema
// validation. It is raised when a policy is created or loaded, never
// during evaluation.
type ConfigurationError struct {
	// Policy is the policy name, when known.
	Policy string

	// Field is the offending field.
	Field string

	// Message describes the problem.
	Message string
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	if e.Policy != "" {
		return fmt.Sprintf("policy %q: invalid %s: %s", e.Policy, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid policy %s: %s", e.Field, e.Message)
}
