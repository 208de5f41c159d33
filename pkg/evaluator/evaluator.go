package evaluator

import (
	"context"
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// Verdict is the normalized output of one evaluator call.
type Verdict struct {
	// Score is the safety score in [0, 1]; higher is safer.
	Score float64 `json:"score"`

	// Action is the evaluator's recommended action.
	Action governance.Action `json:"action"`

	// Violations are free-text violation labels.
	Violations []string `json:"violations"`

	// EvaluatorID identifies the evaluator configuration.
	EvaluatorID string `json:"evaluator_id"`

	// EvaluatorName is the evaluator's display name.
	EvaluatorName string `json:"evaluator_name"`

	// Model is the judge model that produced the verdict.
	Model string `json:"model"`
}

// Result carries one evaluator call's outcome across the concurrency
// boundary. Exactly one of Verdict or Err is set.
type Result struct {
	// EvaluatorID identifies the evaluator configuration.
	EvaluatorID string

	// EvaluatorName is the evaluator's display name.
	EvaluatorName string

	// Verdict is the successful outcome, nil on failure.
	Verdict *Verdict

	// Err is the failure, nil on success.
	Err error

	// TimedOut reports whether the failure was a timeout.
	TimedOut bool

	// Duration is how long the call took.
	Duration time.Duration
}

// Succeeded reports whether the call produced a verdict.
func (r *Result) Succeeded() bool {
	return r.Verdict != nil
}

// Client is the capability interface every evaluator adapter
// implements. One instance is constructed, used, and torn down per
// pipeline invocation; instances are never shared across requests.
type Client interface {
	// Initialize acquires the client's resources.
	Initialize(ctx context.Context) error

	// Evaluate scores a (prompt, response, context) triple.
	Evaluate(ctx context.Context, prompt, response string, evalCtx map[string]string) (*Verdict, error)

	// Cleanup releases resources. Safe to call even if Initialize
	// partially failed.
	Cleanup() error

	// HealthCheck runs a trivial evaluation and checks the result shape.
	HealthCheck(ctx context.Context) error
}

// Config describes one evaluator: which provider adapter to use, which
// judge model to call, and how.
type Config struct {
	// ID is the evaluator's unique identifier.
	ID string `yaml:"id" json:"id"`

	// Name is the evaluator's display name.
	Name string `yaml:"name" json:"name"`

	// Type selects the provider adapter (openai, anthropic, gemini,
	// local).
	Type string `yaml:"type" json:"type"`

	// Model is the judge model identifier.
	Model string `yaml:"model" json:"model"`

	// Endpoint overrides the provider's default base URL. Required for
	// local evaluators.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// CredentialName names the secret holding the provider credential.
	// Local evaluators may leave it empty.
	CredentialName string `yaml:"credential_name,omitempty" json:"credential_name,omitempty"`

	// Temperature controls the judge model's sampling.
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// MaxTokens caps the judge model's output.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// Timeout bounds each call; zero inherits the pool budget.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// MaxRetries bounds transient-error retries inside one call.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
}
