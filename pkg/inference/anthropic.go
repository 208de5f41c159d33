package inference

import (
	"context"
	"fmt"
)

// anthropicVersion is the Messages API version header value.
const anthropicVersion = "2023-06-01"

// AnthropicGenerator adapts the Anthropic Messages API.
type AnthropicGenerator struct {
	*httpClient
}

// NewAnthropicGenerator creates an Anthropic generator.
func NewAnthropicGenerator(config ClientConfig) (*AnthropicGenerator, error) {
	config.applyDefaults()
	if config.APIKey == "" {
		return nil, &InferenceError{Provider: config.Name, Message: "API key is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}
	return &AnthropicGenerator{httpClient: newHTTPClient(config)}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate calls the messages endpoint.
func (g *AnthropicGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	body := anthropicRequest{
		Model:       g.config.Model,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	}

	url := fmt.Sprintf("%s/v1/messages", g.config.BaseURL)
	headers := map[string]string{
		"x-api-key":         g.config.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := g.doJSON(ctx, url, body, &resp, headers); err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, &InferenceError{Provider: g.config.Name, Message: "response contains no content blocks"}
	}

	model := resp.Model
	if model == "" {
		model = g.config.Model
	}
	return &Response{Text: resp.Content[0].Text, Model: model}, nil
}

// Name returns the instance name.
func (g *AnthropicGenerator) Name() string {
	return g.config.Name
}
