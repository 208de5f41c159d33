package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"aegis-hq/aegis/pkg/governance"
	"aegis-hq/aegis/pkg/secrets"
)

// DefaultTimeout is the per-evaluator-call budget when the pool does
// not configure one.
const DefaultTimeout = 800 * time.Millisecond

// FailMode selects the aggregate returned when zero evaluators succeed.
type FailMode string

const (
	// FailOpen degrades to a neutral allow, favoring availability.
	FailOpen FailMode = "open"

	// FailClosed degrades to a block, favoring safety.
	FailClosed FailMode = "closed"
)

// PoolConfig describes one named evaluator pool.
type PoolConfig struct {
	// ID is the pool's unique identifier.
	ID string `yaml:"id" json:"id"`

	// Name is the pool's display name.
	Name string `yaml:"name" json:"name"`

	// OrganizationID scopes credential resolution.
	OrganizationID string `yaml:"organization_id,omitempty" json:"organization_id,omitempty"`

	// Evaluators are the pool members.
	Evaluators []Config `yaml:"evaluators" json:"evaluators"`

	// Timeout is the per-evaluator-call budget. Default: 800ms.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// FailMode selects the zero-success aggregate. Default: open.
	FailMode FailMode `yaml:"fail_mode,omitempty" json:"fail_mode,omitempty"`
}

// Failure describes one evaluator that produced no verdict, either at
// construction time or during the call.
type Failure struct {
	// EvaluatorName is the failing evaluator's display name.
	EvaluatorName string `json:"evaluator_name"`

	// Error is the failure description.
	Error string `json:"error"`

	// TimedOut reports whether the failure was a timeout.
	TimedOut bool `json:"timed_out"`
}

// Aggregate is the pool's consensus over the surviving verdicts.
type Aggregate struct {
	// Score is the mean score across succeeding verdicts, or 0.5 when
	// none succeeded.
	Score float64 `json:"score"`

	// Action is the consensus action: highest vote count among
	// succeeding verdicts, restrictive-wins on ties.
	Action governance.Action `json:"action"`

	// Violations is the deduplicated union of violation labels.
	Violations []string `json:"violations"`

	// Succeeded is how many evaluators returned a verdict.
	Succeeded int `json:"succeeded"`

	// Attempted is how many evaluators the pool configuration names.
	Attempted int `json:"attempted"`

	// SuccessRate is Succeeded / Attempted (0 when the pool is empty).
	SuccessRate float64 `json:"success_rate"`

	// Failures reports every evaluator that produced no verdict.
	Failures []Failure `json:"failures,omitempty"`

	// Degraded is set when zero evaluators succeeded and the aggregate
	// is the configured fail-mode fallback.
	Degraded bool `json:"degraded"`
}

// clientFactory builds a Client for one evaluator. Swappable in tests.
type clientFactory func(config Config, apiKey string) Client

// Pool fans one scoring request out to every evaluator concurrently
// and aggregates whatever survives the time budget.
type Pool struct {
	config    PoolConfig
	resolver  secrets.Resolver
	newClient clientFactory
	logger    *slog.Logger
}

// NewPool creates a pool over the given configuration. resolver may be
// nil when no evaluator names a credential.
func NewPool(config PoolConfig, resolver secrets.Resolver) *Pool {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.FailMode == "" {
		config.FailMode = FailOpen
	}
	return &Pool{
		config:   config,
		resolver: resolver,
		newClient: func(cfg Config, apiKey string) Client {
			return NewModelClient(cfg, apiKey)
		},
		logger: slog.Default().With("component", "evaluator.pool", "pool", config.Name),
	}
}

// Evaluate runs the full fan-out/fan-in cycle. It always returns an
// aggregate; evaluator failures degrade the result, they never abort
// the caller.
func (p *Pool) Evaluate(ctx context.Context, prompt, response string, evalCtx map[string]string) *Aggregate {
	attempted := len(p.config.Evaluators)
	var failures []Failure

	// Construction phase: resolve credentials and initialize clients.
	// Failures are collected, not fatal; the pool proceeds with
	// whatever instantiated.
	type member struct {
		config Config
		client Client
	}
	var members []member
	for _, cfg := range p.config.Evaluators {
		if cfg.Timeout <= 0 {
			cfg.Timeout = p.config.Timeout
		}

		var apiKey string
		if cfg.CredentialName != "" {
			if p.resolver == nil {
				failures = append(failures, Failure{EvaluatorName: cfg.Name, Error: "no credential resolver configured"})
				continue
			}
			key, err := p.resolver.GetSecretByName(ctx, p.config.OrganizationID, cfg.CredentialName)
			if err != nil {
				p.logger.Warn("evaluator credential unavailable, excluding from pool",
					"evaluator", cfg.Name, "error", err)
				failures = append(failures, Failure{EvaluatorName: cfg.Name, Error: "credential unavailable"})
				continue
			}
			apiKey = key
		}

		client := p.newClient(cfg, apiKey)
		if err := client.Initialize(ctx); err != nil {
			p.logger.Warn("evaluator construction failed, excluding from pool",
				"evaluator", cfg.Name, "error", err)
			client.Cleanup()
			failures = append(failures, Failure{EvaluatorName: cfg.Name, Error: err.Error()})
			continue
		}
		members = append(members, member{config: cfg, client: client})
	}

	// Fan-out: one goroutine per instantiated client, each bounded by
	// its own timeout. Fan-in is a barrier: all calls settle before
	// aggregation, success or failure.
	results := make([]Result, len(members))
	var wg sync.WaitGroup
	for i, m := range members {
		wg.Add(1)
		go func(i int, m member) {
			defer wg.Done()
			defer m.client.Cleanup()

			callCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
			defer cancel()

			start := time.Now()
			verdict, err := m.client.Evaluate(callCtx, prompt, response, evalCtx)
			result := Result{
				EvaluatorID:   m.config.ID,
				EvaluatorName: m.config.Name,
				Verdict:       verdict,
				Err:           err,
				Duration:      time.Since(start),
			}
			if err != nil {
				var timeout *TimeoutError
				result.TimedOut = errors.As(err, &timeout)
			}
			results[i] = result
		}(i, m)
	}
	wg.Wait()

	for _, r := range results {
		if r.Succeeded() {
			continue
		}
		failures = append(failures, Failure{
			EvaluatorName: r.EvaluatorName,
			Error:         r.Err.Error(),
			TimedOut:      r.TimedOut,
		})
	}

	aggregate := p.aggregate(results, attempted, failures)
	p.logger.Info("pool evaluation complete",
		"attempted", aggregate.Attempted,
		"succeeded", aggregate.Succeeded,
		"score", aggregate.Score,
		"action", aggregate.Action,
		"degraded", aggregate.Degraded,
	)
	return aggregate
}

// aggregate folds the surviving verdicts with commutative operations
// (mean, set union, vote count) so completion order never matters.
func (p *Pool) aggregate(results []Result, attempted int, failures []Failure) *Aggregate {
	agg := &Aggregate{
		Violations: []string{},
		Attempted:  attempted,
		Failures:   failures,
	}

	var scoreSum float64
	votes := make(map[governance.Action]int)
	seen := make(map[string]bool)

	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		agg.Succeeded++
		scoreSum += r.Verdict.Score
		votes[r.Verdict.Action]++
		for _, label := range r.Verdict.Violations {
			if !seen[label] {
				seen[label] = true
				agg.Violations = append(agg.Violations, label)
			}
		}
	}

	if attempted > 0 {
		agg.SuccessRate = float64(agg.Succeeded) / float64(attempted)
	}

	if agg.Succeeded == 0 {
		agg.Score = neutralScore
		agg.Action = governance.ActionAllow
		if p.config.FailMode == FailClosed {
			agg.Action = governance.ActionBlock
		}
		agg.Degraded = true
		return agg
	}

	agg.Score = scoreSum / float64(agg.Succeeded)
	agg.Action = consensusAction(votes)
	sort.Strings(agg.Violations)
	return agg
}

// consensusAction picks the action with the most votes; ties go to the
// more restrictive action.
func consensusAction(votes map[governance.Action]int) governance.Action {
	best := governance.ActionAllow
	bestCount := -1
	for action, count := range votes {
		if count > bestCount || (count == bestCount && action.Rank() > best.Rank()) {
			best = action
			bestCount = count
		}
	}
	return best
}
