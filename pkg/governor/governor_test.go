package governor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"aegis-hq/aegis/pkg/cache"
	"aegis-hq/aegis/pkg/evaluator"
	"aegis-hq/aegis/pkg/governance"
	"aegis-hq/aegis/pkg/inference"
	"aegis-hq/aegis/pkg/policy"
	"aegis-hq/aegis/pkg/retrieval"
)

// stubGenerator serves canned responses in order; the last one repeats.
type stubGenerator struct {
	mu        sync.Mutex
	calls     int
	responses []stubResponse
}

type stubResponse struct {
	text string
	err  error
}

func (g *stubGenerator) Generate(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.calls
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	g.calls++
	r := g.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return &inference.Response{Text: r.text, Model: "stub-model"}, nil
}

func (g *stubGenerator) Name() string { return "stub" }
func (g *stubGenerator) Close() error { return nil }

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// verdictServer serves a fixed judge verdict through the local
// inference adapter's wire shape.
func verdictServer(t *testing.T, score float64, action governance.Action, violations []string) *httptest.Server {
	t.Helper()
	verdict, err := json.Marshal(map[string]any{
		"score":      score,
		"action":     action,
		"violations": violations,
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"text": %q, "model": "judge-v1"}`, verdict)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func allowPool(t *testing.T, size int) *evaluator.Pool {
	t.Helper()
	evaluators := make([]evaluator.Config, 0, size)
	for i := 0; i < size; i++ {
		srv := verdictServer(t, 0.9, governance.ActionAllow, nil)
		evaluators = append(evaluators, evaluator.Config{
			ID:       fmt.Sprintf("judge-%d", i),
			Name:     fmt.Sprintf("judge-%d", i),
			Type:     "local",
			Endpoint: srv.URL,
			Timeout:  2 * time.Second,
		})
	}
	return evaluator.NewPool(evaluator.PoolConfig{ID: "pool", Name: "test-pool", Evaluators: evaluators}, nil)
}

func emptyPool() *evaluator.Pool {
	return evaluator.NewPool(evaluator.PoolConfig{ID: "pool", Name: "empty-pool"}, nil)
}

func blockingPolicy(action governance.Action) *policy.Policy {
	return &policy.Policy{
		ID:       "secret-guard",
		Name:     "secret-guard",
		Enabled:  true,
		Severity: governance.SeverityCritical,
		Conditions: []policy.Condition{
			{Type: policy.ConditionRegex, Patterns: []string{`\bSECRET\b`}, CaseSensitive: true},
		},
		Actions: []governance.Action{action},
	}
}

func phoneRedactPolicy() *policy.Policy {
	return &policy.Policy{
		ID:       "pii-guard",
		Name:     "pii-guard",
		Enabled:  true,
		Severity: governance.SeverityHigh,
		Conditions: []policy.Condition{
			{Type: policy.ConditionPII, PIITypes: []string{"phone"}},
		},
		Actions: []governance.Action{governance.ActionRedact},
	}
}

func newTestGovernor(t *testing.T, pool *evaluator.Pool, gen *stubGenerator, policies ...*policy.Policy) (*Governor, *cache.MemoryCache) {
	t.Helper()
	store := policy.NewMemoryStore()
	for _, p := range policies {
		if err := store.Upsert(context.Background(), p); err != nil {
			t.Fatalf("upsert policy: %v", err)
		}
	}
	engine := policy.NewEngine(store, nil, policy.DefaultEngineConfig())
	responseCache := cache.NewMemoryCache()
	g := New(Config{CacheTTL: time.Minute}, engine, pool, gen, responseCache)
	return g, responseCache
}

func TestGenerateSafeResponse_CleanTextAllows(t *testing.T) {
	gen := &stubGenerator{responses: []stubResponse{{text: "A perfectly ordinary answer about gardening techniques."}}}
	g, responseCache := newTestGovernor(t, allowPool(t, 3), gen)

	req := &Request{Prompt: "tell me about gardening", OrganizationID: "org-1"}
	result := g.GenerateSafeResponse(context.Background(), req)

	if result.Action != governance.ActionAllow {
		t.Fatalf("expected allow, got %s (reason %q)", result.Action, result.Reason)
	}
	if result.Severity != governance.SeverityLow {
		t.Errorf("expected severity low, got %s", result.Severity)
	}
	if len(result.Violations) != 0 {
		t.Errorf("expected no violations, got %v", result.Violations)
	}
	if result.Response != "A perfectly ordinary answer about gardening techniques." {
		t.Errorf("unexpected response %q", result.Response)
	}
	if result.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %v", result.SuccessRate)
	}
	if math.Abs(result.EvaluatorScore-0.9) > 1e-9 {
		t.Errorf("expected evaluator score 0.9, got %v", result.EvaluatorScore)
	}

	// An allowed response must be cached under the request fingerprint.
	fingerprint := cache.Fingerprint(req.Prompt, req.Context)
	entry, ok, err := responseCache.Get(context.Background(), fingerprint)
	if err != nil || !ok {
		t.Fatalf("expected cached entry, ok=%v err=%v", ok, err)
	}
	if entry.Response != result.Response {
		t.Errorf("cached response differs: %q", entry.Response)
	}
}

func TestGenerateSafeResponse_CacheHitSkipsGeneration(t *testing.T) {
	gen := &stubGenerator{responses: []stubResponse{{text: "A perfectly ordinary answer about gardening techniques."}}}
	g, _ := newTestGovernor(t, emptyPool(), gen)

	req := &Request{Prompt: "tell me about gardening", OrganizationID: "org-1"}
	first := g.GenerateSafeResponse(context.Background(), req)
	if first.Cached {
		t.Fatal("first run must not be a cache hit")
	}
	callsAfterFirst := gen.callCount()

	second := g.GenerateSafeResponse(context.Background(), req)
	if !second.Cached {
		t.Fatal("second run must be a cache hit")
	}
	if second.Response != first.Response {
		t.Errorf("cached response differs: %q vs %q", second.Response, first.Response)
	}
	if gen.callCount() != callsAfterFirst {
		t.Errorf("cache hit must not call the generator, calls went %d -> %d", callsAfterFirst, gen.callCount())
	}
}

func TestGenerateSafeResponse_BlockedResponse(t *testing.T) {
	flagged := "The SECRET launch codes are 0000."
	gen := &stubGenerator{responses: []stubResponse{{text: flagged}}}
	g, responseCache := newTestGovernor(t, emptyPool(), gen, blockingPolicy(governance.ActionBlock))

	req := &Request{Prompt: "what are the launch codes", OrganizationID: "org-1"}
	result := g.GenerateSafeResponse(context.Background(), req)

	if result.Action != governance.ActionBlock {
		t.Fatalf("expected block, got %s", result.Action)
	}
	if result.Severity != governance.SeverityCritical {
		t.Errorf("expected severity critical, got %s", result.Severity)
	}
	if strings.Contains(result.Response, "SECRET") {
		t.Errorf("blocked response leaks the flagged text: %q", result.Response)
	}
	if !strings.Contains(result.Response, "blocked") {
		t.Errorf("block message should say so: %q", result.Response)
	}
	if len(result.Violations) == 0 || result.Violations[0].Type != "regex_match" {
		t.Errorf("expected a regex_match violation, got %v", result.Violations)
	}

	// Blocked responses are never cached.
	fingerprint := cache.Fingerprint(req.Prompt, req.Context)
	if _, ok, _ := responseCache.Get(context.Background(), fingerprint); ok {
		t.Error("blocked response must not be cached")
	}
}

func TestGenerateSafeResponse_RedactsPhoneNumber(t *testing.T) {
	gen := &stubGenerator{responses: []stubResponse{{text: "Sure, call me at 555-123-4567 any time."}}}
	g, _ := newTestGovernor(t, emptyPool(), gen, phoneRedactPolicy())

	result := g.GenerateSafeResponse(context.Background(), &Request{Prompt: "how do I reach you", OrganizationID: "org-1"})

	if result.Action != governance.ActionRedact {
		t.Fatalf("expected redact, got %s", result.Action)
	}
	if !strings.Contains(result.Response, "[PHONE REDACTED]") {
		t.Errorf("expected phone marker in %q", result.Response)
	}
	if strings.Contains(result.Response, "555-123-4567") {
		t.Errorf("redacted response leaks the number: %q", result.Response)
	}
}

func TestGenerateSafeResponse_RewriteExhaustsBudgetThenDeclines(t *testing.T) {
	// Generation returns flagged text; every rewrite attempt comes back
	// too short to accept.
	gen := &stubGenerator{responses: []stubResponse{
		{text: "Here is the SECRET recipe you asked about, straight from the vault."},
		{text: "no"},
	}}
	g, _ := newTestGovernor(t, emptyPool(), gen, blockingPolicy(governance.ActionRewrite))

	result := g.GenerateSafeResponse(context.Background(), &Request{Prompt: "share the recipe", OrganizationID: "org-1"})

	if result.Action != governance.ActionRewrite {
		t.Fatalf("expected rewrite, got %s", result.Action)
	}
	if result.Response != declineMessage {
		t.Errorf("expected the fixed decline message, got %q", result.Response)
	}
	// One generation call plus exactly MaxRewriteAttempts rewrite calls.
	if want := 1 + g.config.MaxRewriteAttempts; gen.callCount() != want {
		t.Errorf("expected %d generator calls, got %d", want, gen.callCount())
	}
}

func TestGenerateSafeResponse_RewriteAcceptedWhenSubstantive(t *testing.T) {
	rewritten := "Here is a compliant answer that explains the topic thoroughly without any restricted content at all."
	gen := &stubGenerator{responses: []stubResponse{
		{text: "Here is the SECRET recipe you asked about, straight from the vault."},
		{text: "too short"},
		{text: rewritten},
	}}
	g, _ := newTestGovernor(t, emptyPool(), gen, blockingPolicy(governance.ActionRewrite))

	result := g.GenerateSafeResponse(context.Background(), &Request{Prompt: "share the recipe", OrganizationID: "org-1"})

	if result.Response != rewritten {
		t.Errorf("expected the rewritten text, got %q", result.Response)
	}
	if gen.callCount() != 3 {
		t.Errorf("expected 3 generator calls, got %d", gen.callCount())
	}
}

func TestGenerateSafeResponse_GenerationFailureEmitsSafeBlock(t *testing.T) {
	gen := &stubGenerator{responses: []stubResponse{{err: fmt.Errorf("provider unavailable")}}}
	g, _ := newTestGovernor(t, emptyPool(), gen)

	result := g.GenerateSafeResponse(context.Background(), &Request{Prompt: "anything", OrganizationID: "org-1"})

	if result.Action != governance.ActionBlock {
		t.Fatalf("expected block, got %s", result.Action)
	}
	if result.Severity != governance.SeverityCritical {
		t.Errorf("expected severity critical, got %s", result.Severity)
	}
	if result.Error == "" {
		t.Error("expected the pipeline error to be reported")
	}
	if result.Response != fallbackMessage {
		t.Errorf("expected the safe fallback, got %q", result.Response)
	}
}

func TestGenerateSafeResponse_DegradedPoolFailsOpen(t *testing.T) {
	gen := &stubGenerator{responses: []stubResponse{{text: "A perfectly ordinary answer about gardening techniques."}}}
	g, _ := newTestGovernor(t, emptyPool(), gen)

	result := g.GenerateSafeResponse(context.Background(), &Request{Prompt: "tell me about gardening", OrganizationID: "org-1"})

	if result.Action != governance.ActionAllow {
		t.Fatalf("expected fail-open allow, got %s", result.Action)
	}
	if result.Severity != governance.SeverityLow {
		t.Errorf("a degraded neutral pool must not inflate severity, got %s", result.Severity)
	}
	if result.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %v", result.SuccessRate)
	}
}

func TestGenerateSafeResponse_AugmentsPromptWithContext(t *testing.T) {
	gen := &stubGenerator{responses: []stubResponse{{text: "A grounded answer about the runbook procedures."}}}
	searcher := retrieval.NewStaticSearcher()
	searcher.Add("org-1", retrieval.Document{Title: "Runbook", Summary: "incident runbook steps", Score: 10})

	store := policy.NewMemoryStore()
	engine := policy.NewEngine(store, nil, policy.DefaultEngineConfig())
	g := New(Config{CacheTTL: time.Minute}, engine, emptyPool(), gen, cache.NewMemoryCache(), WithSearcher(searcher))

	result := g.GenerateSafeResponse(context.Background(), &Request{Prompt: "incident runbook", OrganizationID: "org-1"})
	if result.Action != governance.ActionAllow {
		t.Fatalf("expected allow, got %s", result.Action)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected 1 generator call, got %d", gen.callCount())
	}
}

func TestMetrics_ObservesRunsAndCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	gen := &stubGenerator{responses: []stubResponse{{text: "A perfectly ordinary answer about gardening techniques."}}}
	store := policy.NewMemoryStore()
	engine := policy.NewEngine(store, nil, policy.DefaultEngineConfig())
	g := New(Config{CacheTTL: time.Minute}, engine, emptyPool(), gen, cache.NewMemoryCache(), WithMetrics(metrics))

	req := &Request{Prompt: "tell me about gardening", OrganizationID: "org-1"}
	g.GenerateSafeResponse(context.Background(), req)
	g.GenerateSafeResponse(context.Background(), req)

	if got := testutil.ToFloat64(metrics.cacheMissTotal); got != 1 {
		t.Errorf("expected 1 cache miss, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.cacheHitsTotal); got != 1 {
		t.Errorf("expected 1 cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.runsTotal.WithLabelValues("allow", "false")); got != 1 {
		t.Errorf("expected 1 uncached allow run, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.runsTotal.WithLabelValues("allow", "true")); got != 1 {
		t.Errorf("expected 1 cached allow run, got %v", got)
	}
}
