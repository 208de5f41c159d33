package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// EvaluationRecord is one persisted policy evaluation. One record is
// created per pipeline run that reaches the decision stage; cache hits
// produce none.
type EvaluationRecord struct {
	// ID is the unique evaluation identifier.
	ID string `json:"id"`

	// OrganizationID scopes the record to an organization.
	OrganizationID string `json:"organization_id"`

	// InputHash is the SHA-256 of the evaluated text. The raw text is
	// not stored; InputExcerpt keeps a bounded prefix for review.
	InputHash string `json:"input_hash"`

	// InputExcerpt is a truncated prefix of the evaluated text.
	InputExcerpt string `json:"input_excerpt"`

	// Action is the merged action taken.
	Action governance.Action `json:"action"`

	// Severity is the merged severity.
	Severity governance.Severity `json:"severity"`

	// PolicyResults is the per-policy result breakdown, serialized by
	// the policy engine.
	PolicyResults json.RawMessage `json:"policy_results,omitempty"`

	// ProcessingTime is how long the evaluation took.
	ProcessingTime time.Duration `json:"processing_time"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
}

// ViolationRecord is one persisted violation, owned by an evaluation.
type ViolationRecord struct {
	// ID is the unique violation identifier.
	ID string `json:"id"`

	// EvaluationID links the violation to its evaluation.
	EvaluationID string `json:"evaluation_id"`

	// OrganizationID scopes the record to an organization.
	OrganizationID string `json:"organization_id"`

	// Violation is the condition evaluator output.
	Violation governance.Violation `json:"violation"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists evaluation and violation records.
//
// Implementations must treat both record types as append-only; no
// update or delete operations exist on purpose.
type Store interface {
	// InsertEvaluation persists one evaluation record.
	InsertEvaluation(ctx context.Context, record *EvaluationRecord) error

	// InsertViolations persists the violations of one evaluation.
	InsertViolations(ctx context.Context, records []*ViolationRecord) error

	// GetEvaluation returns an evaluation by ID, or ErrNotFound.
	GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error)

	// ListEvaluations returns the most recent evaluations for an
	// organization, newest first, bounded by limit.
	ListEvaluations(ctx context.Context, orgID string, limit int) ([]*EvaluationRecord, error)

	// ListViolations returns the violations of one evaluation.
	ListViolations(ctx context.Context, evaluationID string) ([]*ViolationRecord, error)

	// Close releases the store's resources.
	Close() error
}
