// Package policy implements the declarative policy engine.
//
// Policies are organization-scoped YAML documents holding prioritized
// condition/action bindings. Documents are validated eagerly against a
// closed schema when created or loaded; an invalid document never
// reaches evaluation. Evaluation runs every enabled policy in ascending
// priority with no short-circuit, maps the maximum condition confidence
// per policy onto warning and action thresholds, and merges across
// policies with highest-severity and most-restrictive-action semantics.
package policy
