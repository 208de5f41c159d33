package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aegis-hq/aegis/pkg/governance"
	"aegis-hq/aegis/pkg/storage"
)

const inputExcerptLimit = 200

// EngineConfig holds the engine-wide threshold defaults. Individual
// policies may override both thresholds.
type EngineConfig struct {
	// WarningThreshold is the confidence above which a policy logs a
	// warning instead of allowing. Default: 0.5.
	WarningThreshold float64

	// ActionThreshold is the confidence above which a policy takes its
	// primary action. Default: 0.7.
	ActionThreshold float64
}

// DefaultEngineConfig returns the default thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{WarningThreshold: 0.5, ActionThreshold: 0.7}
}

// Engine evaluates texts against an organization's policy set and
// persists the outcome.
type Engine struct {
	policies Store
	records  storage.Store
	config   EngineConfig
	logger   *slog.Logger
}

// NewEngine creates a policy engine. records may be nil, in which case
// evaluations are not persisted (useful for linting and tests).
func NewEngine(policies Store, records storage.Store, config EngineConfig) *Engine {
	if config.WarningThreshold <= 0 {
		config.WarningThreshold = 0.5
	}
	if config.ActionThreshold <= 0 {
		config.ActionThreshold = 0.7
	}
	return &Engine{
		policies: policies,
		records:  records,
		config:   config,
		logger:   slog.Default().With("component", "policy.engine"),
	}
}

// EvaluateText runs every enabled policy against the text and merges
// the outcomes. All policies run; nothing short-circuits, so several
// policies may each contribute violations. The merged evaluation is
// persisted as one evaluation record plus one violation record per
// fired condition.
func (e *Engine) EvaluateText(ctx context.Context, text, orgID string, evalCtx map[string]string) (*Evaluation, error) {
	start := time.Now()

	policies, err := e.policies.ListEnabled(ctx, orgID)
	if err != nil {
		return nil, err
	}

	merged := &Evaluation{
		EvaluationID: uuid.NewString(),
		Action:       governance.ActionAllow,
		Severity:     governance.SeverityLow,
		Violations:   []governance.Violation{},
	}

	for _, p := range policies {
		result := e.evaluatePolicy(p, text, evalCtx)
		merged.PolicyResults = append(merged.PolicyResults, result)
		if !result.Triggered {
			continue
		}
		merged.Action = governance.MergeActions(merged.Action, result.Action)
		merged.Severity = governance.MaxSeverity(merged.Severity, p.Severity)
		merged.Violations = append(merged.Violations, result.Violations...)
	}

	merged.ProcessingTime = time.Since(start)

	if e.records != nil {
		if err := e.persist(ctx, merged, text, orgID); err != nil {
			// Persistence failure degrades observability, not the
			// decision itself.
			e.logger.Error("failed to persist evaluation",
				"evaluation_id", merged.EvaluationID,
				"error", err,
			)
		}
	}

	return merged, nil
}

// evaluatePolicy runs all of one policy's conditions and maps the
// maximum confidence onto the warning/action thresholds.
func (e *Engine) evaluatePolicy(p *Policy, text string, evalCtx map[string]string) PolicyResult {
	result := PolicyResult{
		PolicyID:   p.ID,
		PolicyName: p.Name,
		Action:     governance.ActionAllow,
	}

	var fired []governance.Violation
	for i := range p.Conditions {
		violation := e.evaluateCondition(p, &p.Conditions[i], text, evalCtx)
		if violation == nil {
			continue
		}
		fired = append(fired, *violation)
		if violation.Confidence > result.Confidence {
			result.Confidence = violation.Confidence
		}
	}
	if len(fired) == 0 {
		return result
	}

	warning := p.WarningThreshold
	if warning == 0 {
		warning = e.config.WarningThreshold
	}
	action := p.ActionThreshold
	if action == 0 {
		action = e.config.ActionThreshold
	}

	switch {
	case result.Confidence >= action:
		result.Triggered = true
		result.Action = p.PrimaryAction()
		result.Violations = fired
	case result.Confidence >= warning:
		result.Triggered = true
		result.Action = governance.ActionLogOnly
		result.Violations = fired
	}
	return result
}

// evaluateCondition contains a single condition's failure: an error or
// panic from one evaluator degrades to "no violation" for that
// condition only.
func (e *Engine) evaluateCondition(p *Policy, cond *Condition, text string, evalCtx map[string]string) (violation *governance.Violation) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("condition evaluator panicked",
				"policy", p.Name,
				"condition_type", cond.Type,
				"panic", r,
			)
			violation = nil
		}
	}()

	fn, ok := conditionFuncs[cond.Type]
	if !ok {
		return nil
	}
	v, err := fn(text, cond, evalCtx, p.Severity, p.Name)
	if err != nil {
		e.logger.Warn("condition evaluation failed, treating as no violation",
			"policy", p.Name,
			"condition_type", cond.Type,
			"error", err,
		)
		return nil
	}
	return v
}

func (e *Engine) persist(ctx context.Context, eval *Evaluation, text, orgID string) error {
	hash := sha256.Sum256([]byte(text))
	excerpt := text
	if len(excerpt) > inputExcerptLimit {
		excerpt = excerpt[:inputExcerptLimit]
	}

	breakdown, err := json.Marshal(eval.PolicyResults)
	if err != nil {
		return err
	}

	now := time.Now()
	record := &storage.EvaluationRecord{
		ID:             eval.EvaluationID,
		OrganizationID: orgID,
		InputHash:      hex.EncodeToString(hash[:]),
		InputExcerpt:   excerpt,
		Action:         eval.Action,
		Severity:       eval.Severity,
		PolicyResults:  breakdown,
		ProcessingTime: eval.ProcessingTime,
		CreatedAt:      now,
	}
	if err := e.records.InsertEvaluation(ctx, record); err != nil {
		return err
	}

	violations := make([]*storage.ViolationRecord, 0, len(eval.Violations))
	for _, v := range eval.Violations {
		violations = append(violations, &storage.ViolationRecord{
			ID:             uuid.NewString(),
			EvaluationID:   eval.EvaluationID,
			OrganizationID: orgID,
			Violation:      v,
			CreatedAt:      now,
		})
	}
	return e.records.InsertViolations(ctx, violations)
}
