package inference

import (
	"context"
	"fmt"
)

// GeminiGenerator adapts the Gemini generateContent API.
type GeminiGenerator struct {
	*httpClient
}

// NewGeminiGenerator creates a Gemini generator.
func NewGeminiGenerator(config ClientConfig) (*GeminiGenerator, error) {
	config.applyDefaults()
	if config.APIKey == "" {
		return nil, &InferenceError{Provider: config.Name, Message: "API key is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &GeminiGenerator{httpClient: newHTTPClient(config)}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate calls the generateContent endpoint. Gemini has no separate
// system slot in this API shape, so the system instruction is prepended
// to the prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.Temperature = g.config.Temperature
	body.GenerationConfig.MaxOutputTokens = g.config.MaxTokens

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.config.BaseURL, g.config.Model, g.config.APIKey)

	var resp geminiResponse
	if err := g.doJSON(ctx, url, body, &resp, nil); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &InferenceError{Provider: g.config.Name, Message: "response contains no candidates"}
	}

	return &Response{Text: resp.Candidates[0].Content.Parts[0].Text, Model: g.config.Model}, nil
}

// Name returns the instance name.
func (g *GeminiGenerator) Name() string {
	return g.config.Name
}
