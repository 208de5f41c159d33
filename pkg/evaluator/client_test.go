package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aegis-hq/aegis/pkg/governance"
)

func localEvaluatorServer(t *testing.T, verdictJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": verdictJSON, "model": "judge-v1"})
	}))
}

func TestModelClient_Evaluate(t *testing.T) {
	server := localEvaluatorServer(t, `{"score": 0.25, "action": "block", "violations": ["toxicity"]}`)
	defer server.Close()

	client := NewModelClient(Config{
		ID: "ev-1", Name: "judge-1", Type: "local", Endpoint: server.URL,
		Timeout: time.Second,
	}, "")
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer client.Cleanup()

	verdict, err := client.Evaluate(context.Background(), "prompt", "response", nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if verdict.Score != 0.25 || verdict.Action != governance.ActionBlock {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
	if verdict.Model != "judge-v1" {
		t.Errorf("expected model judge-v1, got %s", verdict.Model)
	}
	if verdict.EvaluatorID != "ev-1" {
		t.Errorf("expected evaluator identity, got %s", verdict.EvaluatorID)
	}
}

func TestModelClient_MalformedJudgeOutputIsNeutral(t *testing.T) {
	server := localEvaluatorServer(t, "I refuse to answer in JSON.")
	defer server.Close()

	client := NewModelClient(Config{
		ID: "ev-1", Name: "judge-1", Type: "local", Endpoint: server.URL,
		Timeout: time.Second,
	}, "")
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer client.Cleanup()

	verdict, err := client.Evaluate(context.Background(), "prompt", "response", nil)
	if err != nil {
		t.Fatalf("expected neutral verdict, got error: %v", err)
	}
	if verdict.Score != 0.5 || verdict.Action != governance.ActionAllow || len(verdict.Violations) != 0 {
		t.Errorf("expected neutral verdict, got %+v", verdict)
	}
}

func TestModelClient_TimeoutIsDistinct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := NewModelClient(Config{
		ID: "ev-1", Name: "judge-1", Type: "local", Endpoint: server.URL,
		Timeout: time.Second, MaxRetries: 1,
	}, "")
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer client.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Evaluate(ctx, "prompt", "response", nil)
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
}

func TestModelClient_CleanupBeforeInitialize(t *testing.T) {
	client := NewModelClient(Config{ID: "ev-1", Name: "judge-1", Type: "local"}, "")
	if err := client.Cleanup(); err != nil {
		t.Errorf("Cleanup before Initialize must be safe, got %v", err)
	}
}

func TestModelClient_UnknownProviderFailsInitialize(t *testing.T) {
	client := NewModelClient(Config{ID: "ev-1", Name: "judge-1", Type: "mystery"}, "")
	err := client.Initialize(context.Background())
	var evalErr *EvaluatorError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluatorError, got %T: %v", err, err)
	}
}

func TestTestEvaluator(t *testing.T) {
	server := localEvaluatorServer(t, `{"score": 1.0, "action": "allow", "violations": []}`)
	defer server.Close()

	err := TestEvaluator(context.Background(), Config{
		ID: "ev-1", Name: "judge-1", Type: "local", Endpoint: server.URL,
		Timeout: time.Second,
	}, "")
	if err != nil {
		t.Fatalf("TestEvaluator failed: %v", err)
	}
}
