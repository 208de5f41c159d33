package governor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"aegis-hq/aegis/pkg/audit"
	"aegis-hq/aegis/pkg/cache"
	"aegis-hq/aegis/pkg/evaluator"
	"aegis-hq/aegis/pkg/governance"
	"aegis-hq/aegis/pkg/inference"
	"aegis-hq/aegis/pkg/policy"
	"aegis-hq/aegis/pkg/retrieval"
)

const (
	// approvedReason is the reason emitted when nothing objected.
	approvedReason = "approved by governance"

	// fallbackMessage is shown when the pipeline itself fails.
	fallbackMessage = "I'm unable to produce a response right now. Please try again later."
)

// SeverityBands maps an evaluator consensus score onto a severity:
// score >= Low is low, >= Medium is medium, >= High is high, below
// High is critical. These are tunable defaults, not a contract.
type SeverityBands struct {
	Low    float64
	Medium float64
	High   float64
}

// Config controls the pipeline.
type Config struct {
	// MaxRewriteAttempts bounds the rewrite loop. Default: 3.
	MaxRewriteAttempts int

	// MinRewriteLength is the minimum accepted rewrite length.
	// Default: 50.
	MinRewriteLength int

	// CacheTTL is how long allow responses stay cached. Default: 60m.
	CacheTTL time.Duration

	// SeverityBands derives severity from the consensus score.
	SeverityBands SeverityBands

	// MaxContextDocuments bounds injected document summaries.
	// Default: 5.
	MaxContextDocuments int

	// MaxContextFragments bounds injected fragment excerpts.
	// Default: 10.
	MaxContextFragments int
}

func (c *Config) applyDefaults() {
	if c.MaxRewriteAttempts <= 0 {
		c.MaxRewriteAttempts = 3
	}
	if c.MinRewriteLength <= 0 {
		c.MinRewriteLength = 50
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.SeverityBands == (SeverityBands{}) {
		c.SeverityBands = SeverityBands{Low: 0.8, Medium: 0.6, High: 0.4}
	}
	if c.MaxContextDocuments <= 0 {
		c.MaxContextDocuments = 5
	}
	if c.MaxContextFragments <= 0 {
		c.MaxContextFragments = 10
	}
}

// Governor is the top-level pipeline.
type Governor struct {
	config    Config
	engine    *policy.Engine
	pool      *evaluator.Pool
	generator inference.Generator
	cache     cache.Cache
	searcher  retrieval.Searcher
	recorder  *audit.Recorder
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates a governor. searcher, recorder, and metrics may be nil.
func New(config Config, engine *policy.Engine, pool *evaluator.Pool, generator inference.Generator, responseCache cache.Cache, opts ...Option) *Governor {
	config.applyDefaults()
	g := &Governor{
		config:    config,
		engine:    engine,
		pool:      pool,
		generator: generator,
		cache:     responseCache,
		logger:    slog.Default().With("component", "governor"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Option configures optional collaborators.
type Option func(*Governor)

// WithSearcher injects the retrieval collaborator.
func WithSearcher(s retrieval.Searcher) Option {
	return func(g *Governor) { g.searcher = s }
}

// WithRecorder injects the audit recorder.
func WithRecorder(r *audit.Recorder) Option {
	return func(g *Governor) { g.recorder = r }
}

// WithMetrics injects the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(g *Governor) { g.metrics = m }
}

// GenerateSafeResponse runs the full pipeline. It always returns a
// result; pipeline failures emit a safe fallback instead of an error.
func (g *Governor) GenerateSafeResponse(ctx context.Context, req *Request) *Result {
	start := time.Now()
	fingerprint := cache.Fingerprint(req.Prompt, req.Context)

	// CACHE_CHECK
	if entry, ok := g.cachedResponse(ctx, fingerprint); ok {
		result := &Result{
			Response:       entry.Response,
			Action:         governance.ActionAllow,
			Severity:       governance.SeverityLow,
			Violations:     []governance.Violation{},
			Reason:         approvedReason,
			ProcessingTime: time.Since(start),
			Cached:         true,
		}
		g.emit(req, result)
		return result
	}

	// GENERATE
	augmented := g.buildAugmentedPrompt(ctx, req)
	candidate, err := g.generator.Generate(ctx, &inference.Request{Prompt: augmented})
	if err != nil {
		g.logger.Error("generation failed", "error", err)
		return g.emitFailure(req, &GovernanceError{Stage: "generate", Cause: err}, start)
	}

	// SCORE: policy engine and evaluator pool are independent and run
	// concurrently; both must settle before the decision.
	policyEval, aggregate, scoreErr := g.score(ctx, req, candidate.Text)
	if scoreErr != nil {
		g.logger.Error("scoring failed", "error", scoreErr)
		return g.emitFailure(req, &GovernanceError{Stage: "score", Cause: scoreErr}, start)
	}

	// DECIDE
	action, severity, violations, reason := g.decide(policyEval, aggregate)

	// REMEDIATE
	response := g.remediate(ctx, req, augmented, candidate.Text, action, violations, reason)

	// EMIT
	result := &Result{
		Response:       response,
		Action:         action,
		Severity:       severity,
		Violations:     violations,
		Reason:         reason,
		EvaluationID:   policyEval.EvaluationID,
		ProcessingTime: time.Since(start),
		EvaluatorScore: aggregate.Score,
		SuccessRate:    aggregate.SuccessRate,
	}
	if action == governance.ActionAllow {
		if err := g.cache.Set(ctx, fingerprint, response, g.config.CacheTTL); err != nil {
			g.logger.Warn("cache write failed", "error", err)
		}
	}
	g.emit(req, result)
	return result
}

func (g *Governor) cachedResponse(ctx context.Context, fingerprint string) (*cache.Entry, bool) {
	entry, ok, err := g.cache.Get(ctx, fingerprint)
	if err != nil {
		g.logger.Warn("cache read failed, treating as miss", "error", err)
		return nil, false
	}
	if g.metrics != nil {
		g.metrics.observeCache(ok)
	}
	return entry, ok
}

// buildAugmentedPrompt injects top-ranked document summaries and
// fragment excerpts ahead of the user prompt.
func (g *Governor) buildAugmentedPrompt(ctx context.Context, req *Request) string {
	if g.searcher == nil {
		return req.Prompt
	}

	limit := g.config.MaxContextDocuments + g.config.MaxContextFragments
	docs, err := g.searcher.Search(ctx, req.Prompt, req.OrganizationID, limit)
	if err != nil {
		g.logger.Warn("context retrieval failed, generating without context", "error", err)
		return req.Prompt
	}
	if len(docs) == 0 {
		return req.Prompt
	}

	var summaries, fragments []retrieval.Document
	for _, doc := range docs {
		switch {
		case doc.Summary != "" && len(summaries) < g.config.MaxContextDocuments:
			summaries = append(summaries, doc)
		case doc.Content != "" && len(fragments) < g.config.MaxContextFragments:
			fragments = append(fragments, doc)
		}
	}
	if len(summaries) == 0 && len(fragments) == 0 {
		return req.Prompt
	}

	var b strings.Builder
	if len(summaries) > 0 {
		b.WriteString("Reference documents:\n")
		for _, doc := range summaries {
			fmt.Fprintf(&b, "- %s: %s\n", doc.Title, doc.Summary)
		}
	}
	if len(fragments) > 0 {
		b.WriteString("Relevant excerpts:\n")
		for _, doc := range fragments {
			fmt.Fprintf(&b, "- %s\n", doc.Content)
		}
	}
	b.WriteString("\n")
	b.WriteString(req.Prompt)
	return b.String()
}

// score joins the two independent evaluations.
func (g *Governor) score(ctx context.Context, req *Request, response string) (*policy.Evaluation, *evaluator.Aggregate, error) {
	var (
		wg         sync.WaitGroup
		policyEval *policy.Evaluation
		policyErr  error
		aggregate  *evaluator.Aggregate
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		policyEval, policyErr = g.engine.EvaluateText(ctx, response, req.OrganizationID, req.Context)
	}()
	go func() {
		defer wg.Done()
		aggregate = g.pool.Evaluate(ctx, req.Prompt, response, req.Context)
	}()
	wg.Wait()

	if policyErr != nil {
		return nil, nil, policyErr
	}
	if g.metrics != nil {
		g.metrics.observePool(aggregate)
	}
	return policyEval, aggregate, nil
}

// decide merges the two verdicts: restrictive-wins action, policy
// severity when the policy engine found violations, otherwise the
// banded evaluator severity when the evaluators objected. A clean run
// (no findings on either side) stays at severity low regardless of
// score, so a degraded neutral pool never inflates severity.
func (g *Governor) decide(policyEval *policy.Evaluation, aggregate *evaluator.Aggregate) (governance.Action, governance.Severity, []governance.Violation, string) {
	action := governance.MergeActions(policyEval.Action, aggregate.Action)

	severity := policyEval.Severity
	evaluatorObjected := len(aggregate.Violations) > 0 || aggregate.Action.Rank() > governance.ActionAllow.Rank()
	if len(policyEval.Violations) == 0 && evaluatorObjected {
		severity = governance.MaxSeverity(policyEval.Severity, g.bandedSeverity(aggregate.Score))
	}

	violations := append([]governance.Violation{}, policyEval.Violations...)
	for _, label := range aggregate.Violations {
		violations = append(violations, governance.Violation{
			Type:       "evaluator_flag",
			Severity:   severity,
			Rule:       label,
			Confidence: 1 - aggregate.Score,
		})
	}

	return action, severity, violations, buildReason(policyEval, aggregate)
}

func (g *Governor) bandedSeverity(score float64) governance.Severity {
	bands := g.config.SeverityBands
	switch {
	case score >= bands.Low:
		return governance.SeverityLow
	case score >= bands.Medium:
		return governance.SeverityMedium
	case score >= bands.High:
		return governance.SeverityHigh
	default:
		return governance.SeverityCritical
	}
}

func buildReason(policyEval *policy.Evaluation, aggregate *evaluator.Aggregate) string {
	var parts []string
	if len(policyEval.Violations) > 0 {
		types := make([]string, 0, len(policyEval.Violations))
		seen := map[string]bool{}
		for _, v := range policyEval.Violations {
			if !seen[v.Type] {
				seen[v.Type] = true
				types = append(types, v.Type)
			}
		}
		parts = append(parts, fmt.Sprintf("policy violations: %s", strings.Join(types, ", ")))
	}
	if len(aggregate.Violations) > 0 {
		parts = append(parts, fmt.Sprintf("evaluator findings: %s", strings.Join(aggregate.Violations, ", ")))
	}
	if len(parts) == 0 {
		return approvedReason
	}
	return strings.Join(parts, "; ")
}

// emitFailure assembles the safe fallback result for GENERATE/SCORE
// failures.
func (g *Governor) emitFailure(req *Request, cause *GovernanceError, start time.Time) *Result {
	result := &Result{
		Response:       fallbackMessage,
		Action:         governance.ActionBlock,
		Severity:       governance.SeverityCritical,
		Violations:     []governance.Violation{},
		Reason:         fmt.Sprintf("pipeline failure during %s", cause.Stage),
		ProcessingTime: time.Since(start),
		Error:          cause.Error(),
	}
	g.emit(req, result)
	return result
}

// emit records metrics and the audit event for one run.
func (g *Governor) emit(req *Request, result *Result) {
	if g.metrics != nil {
		g.metrics.observeRun(result)
	}
	if g.recorder != nil {
		g.recorder.Record(&audit.Event{
			OrganizationID: req.OrganizationID,
			EvaluationID:   result.EvaluationID,
			Prompt:         req.Prompt,
			Response:       result.Response,
			Action:         result.Action,
			Severity:       result.Severity,
			ViolationCount: len(result.Violations),
			EvaluatorScore: result.EvaluatorScore,
			Cached:         result.Cached,
			Duration:       result.ProcessingTime,
		})
	}
}
