package policy

import (
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// ConditionType identifies one testable rule type. The set is closed;
// validation rejects any other value.
type ConditionType string

const (
	// ConditionRegex tests compiled patterns against the text.
	ConditionRegex ConditionType = "regex"

	// ConditionPII tests a fixed catalogue of PII detectors.
	ConditionPII ConditionType = "pii_detection"

	// ConditionClassification compares the context-supplied sensitivity
	// label against a block list.
	ConditionClassification ConditionType = "classification"

	// ConditionSentiment scores the text with a lexical negativity
	// heuristic.
	ConditionSentiment ConditionType = "sentiment"

	// ConditionToxicity scores the text with a lexical toxicity
	// heuristic.
	ConditionToxicity ConditionType = "toxicity"

	// ConditionCustom evaluates a named business-rule predicate against
	// the context map.
	ConditionCustom ConditionType = "custom"
)

var validConditionTypes = map[ConditionType]bool{
	ConditionRegex:          true,
	ConditionPII:            true,
	ConditionClassification: true,
	ConditionSentiment:      true,
	ConditionToxicity:       true,
	ConditionCustom:         true,
}

// Condition is one rule inside a policy. Which fields apply depends on
// Type; validation enforces the per-type requirements.
type Condition struct {
	// Type selects the condition evaluator.
	Type ConditionType `yaml:"type" json:"type"`

	// Patterns are the regular expressions for regex conditions.
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// CaseSensitive controls regex matching case. Default: insensitive.
	CaseSensitive bool `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`

	// PIITypes selects detectors for pii_detection conditions. Empty
	// means the full catalogue.
	PIITypes []string `yaml:"pii_types,omitempty" json:"pii_types,omitempty"`

	// BlockedLabels is the classification block list.
	BlockedLabels []string `yaml:"blocked_labels,omitempty" json:"blocked_labels,omitempty"`

	// Threshold is the firing score for sentiment/toxicity conditions.
	// Zero takes the per-type default (0.7 sentiment, 0.8 toxicity).
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Rule names the predicate for custom conditions
	// (time_of_day, actor_role).
	Rule string `yaml:"rule,omitempty" json:"rule,omitempty"`

	// Params carries predicate parameters for custom conditions.
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Policy is one organization-scoped governance policy.
type Policy struct {
	// ID is the policy's unique identifier.
	ID string `yaml:"id,omitempty" json:"id"`

	// OrganizationID scopes the policy. Empty means all organizations.
	OrganizationID string `yaml:"organization_id,omitempty" json:"organization_id"`

	// Name is the required human-readable policy name.
	Name string `yaml:"name" json:"name"`

	// Description is optional free text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Priority orders evaluation; lower evaluates first. Evaluation
	// never short-circuits, so priority affects only result ordering.
	Priority int `yaml:"priority,omitempty" json:"priority"`

	// Enabled policies are the only ones evaluated. Disabled policies
	// are kept for history, not deleted.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Severity is attached to every violation this policy raises.
	Severity governance.Severity `yaml:"severity,omitempty" json:"severity"`

	// Conditions are the policy's rules. At least one is required.
	Conditions []Condition `yaml:"conditions" json:"conditions"`

	// Actions lists the actions to take when the policy triggers. The
	// primary action is the most restrictive member.
	Actions []governance.Action `yaml:"actions" json:"actions"`

	// WarningThreshold overrides the engine default when > 0.
	WarningThreshold float64 `yaml:"warning_threshold,omitempty" json:"warning_threshold,omitempty"`

	// ActionThreshold overrides the engine default when > 0.
	ActionThreshold float64 `yaml:"action_threshold,omitempty" json:"action_threshold,omitempty"`
}

// PrimaryAction returns the most restrictive configured action.
func (p *Policy) PrimaryAction() governance.Action {
	action := governance.ActionAllow
	for _, a := range p.Actions {
		action = governance.MergeActions(action, a)
	}
	return action
}

// PolicyResult is the outcome of evaluating one policy against a text.
type PolicyResult struct {
	// PolicyID identifies the evaluated policy.
	PolicyID string `json:"policy_id"`

	// PolicyName is the policy's name.
	PolicyName string `json:"policy_name"`

	// Triggered reports whether any condition fired above the warning
	// threshold.
	Triggered bool `json:"triggered"`

	// Confidence is the maximum confidence across fired conditions.
	Confidence float64 `json:"confidence"`

	// Action is this policy's contribution to the merged decision.
	Action governance.Action `json:"action"`

	// Violations are the condition matches above the warning threshold.
	Violations []governance.Violation `json:"violations,omitempty"`
}

// Evaluation is the merged outcome of evaluating a text against an
// organization's policy set.
type Evaluation struct {
	// EvaluationID is the persisted record's identifier.
	EvaluationID string `json:"evaluation_id"`

	// Action is the most restrictive action across policies.
	Action governance.Action `json:"action"`

	// Severity is the highest severity across triggered policies.
	Severity governance.Severity `json:"severity"`

	// Violations are all violations across triggered policies, in
	// policy priority order.
	Violations []governance.Violation `json:"violations"`

	// PolicyResults is the per-policy breakdown.
	PolicyResults []PolicyResult `json:"policy_results"`

	// ProcessingTime is how long the evaluation took.
	ProcessingTime time.Duration `json:"processing_time"`
}
