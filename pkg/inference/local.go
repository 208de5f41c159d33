package inference

import (
	"context"
	"fmt"
)

// LocalGenerator adapts a self-hosted generation endpoint exposing
// POST /generate. No credential is required.
type LocalGenerator struct {
	*httpClient
}

// NewLocalGenerator creates a local generator.
func NewLocalGenerator(config ClientConfig) (*LocalGenerator, error) {
	config.applyDefaults()
	if config.BaseURL == "" {
		return nil, &InferenceError{Provider: config.Name, Message: "base URL is required for local provider"}
	}
	return &LocalGenerator{httpClient: newHTTPClient(config)}, nil
}

type localRequest struct {
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Model       string  `json:"model,omitempty"`
}

type localResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Generate calls the /generate endpoint.
func (g *LocalGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	body := localRequest{
		Prompt:      req.Prompt,
		System:      req.System,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
		Model:       g.config.Model,
	}

	url := fmt.Sprintf("%s/generate", g.config.BaseURL)

	var resp localResponse
	if err := g.doJSON(ctx, url, body, &resp, nil); err != nil {
		return nil, err
	}
	if resp.Text == "" {
		return nil, &InferenceError{Provider: g.config.Name, Message: "response contains no text"}
	}

	model := resp.Model
	if model == "" {
		model = g.config.Model
	}
	return &Response{Text: resp.Text, Model: model}, nil
}

// Name returns the instance name.
func (g *LocalGenerator) Name() string {
	return g.config.Name
}
