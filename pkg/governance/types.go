package governance

// Action is an enforcement action applied to a model response.
type Action string

const (
	// ActionAllow passes the response through unchanged.
	ActionAllow Action = "allow"

	// ActionLogOnly passes the response through but records the match.
	ActionLogOnly Action = "log_only"

	// ActionRedact masks detected sensitive spans in the response.
	ActionRedact Action = "redact"

	// ActionRewrite regenerates the response under corrective
	// instructions.
	ActionRewrite Action = "rewrite"

	// ActionBlock replaces the response with a refusal message.
	ActionBlock Action = "block"
)

// actionRank orders actions from most permissive to most restrictive.
// log_only ranks with allow: it never alters the response.
var actionRank = map[Action]int{
	ActionAllow:   0,
	ActionLogOnly: 0,
	ActionRedact:  1,
	ActionRewrite: 2,
	ActionBlock:   3,
}

// Rank returns the restrictiveness rank of the action. Unknown actions
// rank as allow.
func (a Action) Rank() int {
	return actionRank[a]
}

// Valid reports whether the action is a member of the closed set.
func (a Action) Valid() bool {
	_, ok := actionRank[a]
	return ok
}

// MergeActions returns the more restrictive of two actions.
func MergeActions(a, b Action) Action {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the ordering rank of the severity. Unknown severities
// rank as low.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether the severity is a member of the closed set.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// MaxSeverity returns the more severe of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Violation is one detected policy violation. Metadata carries
// evaluator-specific detail; detectors of sensitive content put
// redacted descriptions here, never the matched text itself.
type Violation struct {
	// Type identifies the kind of violation, e.g. "regex_match" or
	// "pii_detected".
	Type string `json:"type" yaml:"type"`

	// Severity is the violation's severity.
	Severity Severity `json:"severity" yaml:"severity"`

	// Rule names the policy or evaluator rule that raised the
	// violation.
	Rule string `json:"rule" yaml:"rule"`

	// Confidence is the detector's confidence in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Metadata carries additional detail about the match.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
