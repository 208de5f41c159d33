package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"aegis-hq/aegis/pkg/inference"
)

// ModelClient is the Client implementation backed by a judge model
// behind an inference adapter. The adapter is selected by Config.Type
// through the closed provider table in pkg/inference.
type ModelClient struct {
	config    Config
	apiKey    string
	generator inference.Generator
	logger    *slog.Logger
}

// NewModelClient creates a client for one evaluator. The credential is
// resolved by the caller; Initialize builds the underlying adapter.
func NewModelClient(config Config, apiKey string) *ModelClient {
	return &ModelClient{
		config: config,
		apiKey: apiKey,
		logger: slog.Default().With("component", "evaluator.client", "evaluator", config.Name),
	}
}

// Initialize constructs the provider adapter.
func (c *ModelClient) Initialize(ctx context.Context) error {
	generator, err := inference.NewGenerator(inference.ClientConfig{
		Provider:    c.config.Type,
		Name:        c.config.Name,
		Model:       c.config.Model,
		BaseURL:     c.config.Endpoint,
		APIKey:      c.apiKey,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Timeout:     c.config.Timeout,
		MaxRetries:  c.config.MaxRetries,
	})
	if err != nil {
		return &EvaluatorError{Evaluator: c.config.Name, Message: "failed to construct client", Cause: err}
	}
	c.generator = generator
	return nil
}

// Evaluate asks the judge model for a structured verdict. Malformed
// judge output degrades to a neutral verdict; only transport failures
// return an error.
func (c *ModelClient) Evaluate(ctx context.Context, prompt, response string, evalCtx map[string]string) (*Verdict, error) {
	if c.generator == nil {
		return nil, &EvaluatorError{Evaluator: c.config.Name, Message: "client not initialized"}
	}

	resp, err := c.generator.Generate(ctx, &inference.Request{
		Prompt: buildVerdictPrompt(prompt, response, evalCtx),
	})
	if err != nil {
		var timeout *inference.TimeoutError
		if errors.As(err, &timeout) || ctx.Err() != nil {
			return nil, &TimeoutError{Evaluator: c.config.Name, Timeout: c.config.Timeout}
		}
		return nil, &EvaluatorError{Evaluator: c.config.Name, Message: "evaluation call failed", Cause: err}
	}

	verdict := parseVerdict(resp.Text, &c.config, resp.Model)
	c.logger.Debug("verdict received",
		"score", verdict.Score,
		"action", verdict.Action,
		"violation_count", len(verdict.Violations),
	)
	return verdict, nil
}

// Cleanup releases the adapter. Safe when Initialize failed.
func (c *ModelClient) Cleanup() error {
	if c.generator == nil {
		return nil
	}
	err := c.generator.Close()
	c.generator = nil
	return err
}

// HealthCheck runs a trivial evaluation and validates the verdict
// shape.
func (c *ModelClient) HealthCheck(ctx context.Context) error {
	verdict, err := c.Evaluate(ctx, "Say hello.", "Hello!", nil)
	if err != nil {
		return err
	}
	if verdict.Score < 0 || verdict.Score > 1 || !verdict.Action.Valid() {
		return &EvaluatorError{Evaluator: c.config.Name, Message: "health check returned malformed verdict"}
	}
	return nil
}

// TestEvaluator builds, initializes, health-checks, and tears down a
// client for one evaluator configuration. Used by administrative
// tooling to verify an evaluator before adding it to a pool.
func TestEvaluator(ctx context.Context, config Config, apiKey string) error {
	client := NewModelClient(config, apiKey)
	if err := client.Initialize(ctx); err != nil {
		return err
	}
	defer client.Cleanup()
	return client.HealthCheck(ctx)
}
