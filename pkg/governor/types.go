package governor

import (
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// Request is one governed generation request.
type Request struct {
	// Prompt is the user prompt.
	Prompt string

	// Context carries evaluation context (classification label, actor
	// role, and any custom keys). It also contributes to the cache
	// fingerprint.
	Context map[string]string

	// OrganizationID scopes policies, credentials, and records.
	OrganizationID string

	// Actor optionally identifies the requesting user.
	Actor string

	// Thread optionally identifies the conversation thread.
	Thread string
}

// Result is the emitted outcome of one pipeline run. Every run
// produces one; errors degrade the fields, they never replace the
// result.
type Result struct {
	// Response is the final, remediated response text.
	Response string `json:"response"`

	// Action is the final action: allow, block, redact, or rewrite
	// (meaning rewritten then allowed).
	Action governance.Action `json:"action"`

	// Severity is the merged severity.
	Severity governance.Severity `json:"severity"`

	// Violations merges policy and evaluator findings.
	Violations []governance.Violation `json:"violations"`

	// Reason explains the decision.
	Reason string `json:"reason"`

	// EvaluationID links to the persisted evaluation record, empty for
	// cache hits and pipeline errors.
	EvaluationID string `json:"evaluation_id,omitempty"`

	// ProcessingTime is the total pipeline duration.
	ProcessingTime time.Duration `json:"processing_time"`

	// Cached reports whether the response was served from cache.
	Cached bool `json:"cached"`

	// EvaluatorScore is the pool's consensus score.
	EvaluatorScore float64 `json:"evaluator_score"`

	// SuccessRate is the pool's succeeded/attempted ratio. A visible
	// 0.0 with Action allow marks the fail-open degraded path.
	SuccessRate float64 `json:"success_rate"`

	// Error carries the pipeline failure description when the run
	// could not be fully governed. The response is still safe to show.
	Error string `json:"error,omitempty"`
}
