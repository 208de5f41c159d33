package inference

import (
	"context"
	"fmt"
)

// OpenAIGenerator adapts the OpenAI chat-completions API.
type OpenAIGenerator struct {
	*httpClient
}

// NewOpenAIGenerator creates an OpenAI generator.
func NewOpenAIGenerator(config ClientConfig) (*OpenAIGenerator, error) {
	config.applyDefaults()
	if config.APIKey == "" {
		return nil, &InferenceError{Provider: config.Name, Message: "API key is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com"
	}
	return &OpenAIGenerator{httpClient: newHTTPClient(config)}, nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Generate calls the chat-completions endpoint.
func (g *OpenAIGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	body := openAIRequest{
		Model:       g.config.Model,
		Messages:    messages,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	}

	url := fmt.Sprintf("%s/v1/chat/completions", g.config.BaseURL)
	headers := map[string]string{"Authorization": "Bearer " + g.config.APIKey}

	var resp openAIResponse
	if err := g.doJSON(ctx, url, body, &resp, headers); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &InferenceError{Provider: g.config.Name, Message: "response contains no choices"}
	}

	model := resp.Model
	if model == "" {
		model = g.config.Model
	}
	return &Response{Text: resp.Choices[0].Message.Content, Model: model}, nil
}

// Name returns the instance name.
func (g *OpenAIGenerator) Name() string {
	return g.config.Name
}
