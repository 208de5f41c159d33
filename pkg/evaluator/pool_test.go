package evaluator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// stubClient is a scripted Client for pool tests.
type stubClient struct {
	verdict     *Verdict
	evalErr     error
	initErr     error
	delay       time.Duration
	cleanups    *atomic.Int32
	initialized bool
}

func (s *stubClient) Initialize(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	return nil
}

func (s *stubClient) Evaluate(ctx context.Context, prompt, response string, evalCtx map[string]string) (*Verdict, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, &TimeoutError{Evaluator: "stub", Timeout: s.delay}
		}
	}
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	return s.verdict, nil
}

func (s *stubClient) Cleanup() error {
	if s.cleanups != nil {
		s.cleanups.Add(1)
	}
	return nil
}

func (s *stubClient) HealthCheck(ctx context.Context) error { return nil }

// poolWithStubs wires a pool whose factory hands out the given clients
// in evaluator order.
func poolWithStubs(config PoolConfig, clients []*stubClient) *Pool {
	pool := NewPool(config, nil)
	index := 0
	pool.newClient = func(cfg Config, apiKey string) Client {
		c := clients[index]
		index++
		return c
	}
	return pool
}

func poolConfig(n int) PoolConfig {
	cfg := PoolConfig{ID: "pool-1", Name: "default", Timeout: 100 * time.Millisecond}
	for i := 0; i < n; i++ {
		cfg.Evaluators = append(cfg.Evaluators, Config{ID: "ev", Name: "judge", Type: "local", Endpoint: "http://unused"})
	}
	return cfg
}

func allowVerdict(score float64, violations ...string) *Verdict {
	if violations == nil {
		violations = []string{}
	}
	return &Verdict{Score: score, Action: governance.ActionAllow, Violations: violations}
}

func TestPool_AllAllow(t *testing.T) {
	clients := []*stubClient{
		{verdict: allowVerdict(0.9)},
		{verdict: allowVerdict(0.9)},
		{verdict: allowVerdict(0.9)},
	}
	pool := poolWithStubs(poolConfig(3), clients)

	agg := pool.Evaluate(context.Background(), "p", "r", nil)
	if agg.Action != governance.ActionAllow {
		t.Errorf("expected allow, got %s", agg.Action)
	}
	if math.Abs(agg.Score-0.9) > 1e-9 {
		t.Errorf("expected score 0.9, got %f", agg.Score)
	}
	if agg.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", agg.SuccessRate)
	}
	if len(agg.Violations) != 0 || agg.Degraded {
		t.Errorf("unexpected aggregate: %+v", agg)
	}
}

func TestPool_TwoTimeoutsOneBlock(t *testing.T) {
	cleanups := &atomic.Int32{}
	clients := []*stubClient{
		{delay: time.Second, cleanups: cleanups}, // times out
		{verdict: &Verdict{Score: 0.3, Action: governance.ActionBlock, Violations: []string{"unsafe"}}, cleanups: cleanups},
		{delay: time.Second, cleanups: cleanups}, // times out
	}
	pool := poolWithStubs(poolConfig(3), clients)

	agg := pool.Evaluate(context.Background(), "p", "r", nil)
	if agg.Score != 0.3 {
		t.Errorf("expected score 0.3, got %f", agg.Score)
	}
	if agg.Action != governance.ActionBlock {
		t.Errorf("expected block consensus, got %s", agg.Action)
	}
	if math.Abs(agg.SuccessRate-1.0/3.0) > 1e-9 {
		t.Errorf("expected success rate 1/3, got %f", agg.SuccessRate)
	}

	timedOut := 0
	for _, f := range agg.Failures {
		if f.TimedOut {
			timedOut++
		}
	}
	if timedOut != 2 {
		t.Errorf("expected 2 timeout failures, got %d (%+v)", timedOut, agg.Failures)
	}

	// Every instantiated client is cleaned up, including timed-out ones.
	if cleanups.Load() != 3 {
		t.Errorf("expected 3 cleanups, got %d", cleanups.Load())
	}
}

func TestPool_AllFailed_FailOpen(t *testing.T) {
	clients := []*stubClient{
		{evalErr: &EvaluatorError{Evaluator: "a", Message: "boom"}},
		{evalErr: &EvaluatorError{Evaluator: "b", Message: "boom"}},
	}
	pool := poolWithStubs(poolConfig(2), clients)

	agg := pool.Evaluate(context.Background(), "p", "r", nil)
	if !agg.Degraded {
		t.Error("expected degraded aggregate")
	}
	if agg.Score != 0.5 || agg.Action != governance.ActionAllow {
		t.Errorf("expected neutral allow, got score %f action %s", agg.Score, agg.Action)
	}
	if agg.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %f", agg.SuccessRate)
	}
}

func TestPool_AllFailed_FailClosed(t *testing.T) {
	cfg := poolConfig(1)
	cfg.FailMode = FailClosed
	pool := poolWithStubs(cfg, []*stubClient{{evalErr: errors.New("boom")}})

	agg := pool.Evaluate(context.Background(), "p", "r", nil)
	if !agg.Degraded || agg.Action != governance.ActionBlock {
		t.Errorf("expected degraded block, got %+v", agg)
	}
}

func TestPool_ConstructionFailureExcludedNotFatal(t *testing.T) {
	clients := []*stubClient{
		{initErr: errors.New("no such model")},
		{verdict: allowVerdict(0.8)},
	}
	pool := poolWithStubs(poolConfig(2), clients)

	agg := pool.Evaluate(context.Background(), "p", "r", nil)
	if agg.Succeeded != 1 || agg.Attempted != 2 {
		t.Errorf("expected 1/2, got %d/%d", agg.Succeeded, agg.Attempted)
	}
	if agg.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %f", agg.SuccessRate)
	}
	if len(agg.Failures) != 1 {
		t.Errorf("expected construction failure to be reported, got %+v", agg.Failures)
	}
}

func TestPool_MissingCredentialExcluded(t *testing.T) {
	cfg := poolConfig(1)
	cfg.Evaluators[0].CredentialName = "missing-key"
	pool := NewPool(cfg, nil) // no resolver configured

	agg := pool.Evaluate(context.Background(), "p", "r", nil)
	if !agg.Degraded || len(agg.Failures) != 1 {
		t.Errorf("expected credential failure to degrade the pool, got %+v", agg)
	}
}

func TestPool_AggregationOrderIndependent(t *testing.T) {
	verdicts := []*Verdict{
		{Score: 0.9, Action: governance.ActionAllow, Violations: []string{"a"}},
		{Score: 0.5, Action: governance.ActionBlock, Violations: []string{"b", "a"}},
		{Score: 0.1, Action: governance.ActionBlock, Violations: []string{"c"}},
		{Score: 0.7, Action: governance.ActionRedact, Violations: []string{}},
	}

	var baseline *Aggregate
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]*Verdict, len(verdicts))
		copy(shuffled, verdicts)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		clients := make([]*stubClient, len(shuffled))
		for i, v := range shuffled {
			clients[i] = &stubClient{verdict: v}
		}
		pool := poolWithStubs(poolConfig(len(shuffled)), clients)
		agg := pool.Evaluate(context.Background(), "p", "r", nil)

		if baseline == nil {
			baseline = agg
			continue
		}
		if math.Abs(agg.Score-baseline.Score) > 1e-9 {
			t.Fatalf("score depends on order: %f vs %f", agg.Score, baseline.Score)
		}
		if agg.Action != baseline.Action {
			t.Fatalf("action depends on order: %s vs %s", agg.Action, baseline.Action)
		}
		if !reflect.DeepEqual(agg.Violations, baseline.Violations) {
			t.Fatalf("violations depend on order: %v vs %v", agg.Violations, baseline.Violations)
		}
	}
}

func TestConsensusAction_RestrictiveTieBreak(t *testing.T) {
	votes := map[governance.Action]int{
		governance.ActionAllow: 2,
		governance.ActionBlock: 2,
	}
	if got := consensusAction(votes); got != governance.ActionBlock {
		t.Errorf("expected block on tie, got %s", got)
	}

	votes = map[governance.Action]int{
		governance.ActionAllow:  3,
		governance.ActionRedact: 1,
	}
	if got := consensusAction(votes); got != governance.ActionAllow {
		t.Errorf("expected majority allow, got %s", got)
	}
}
