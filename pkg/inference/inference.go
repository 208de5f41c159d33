package inference

import (
	"context"
	"time"
)

// Request is one generation request.
type Request struct {
	// Prompt is the user prompt.
	Prompt string

	// System is an optional system instruction.
	System string
}

// Response is one generation result.
type Response struct {
	// Text is the generated text.
	Text string

	// Model is the model that produced the text, as reported by the
	// provider (falls back to the configured model).
	Model string
}

// Generator produces text from a prompt. Implementations are
// provider-specific adapters; one instance is safe for concurrent use.
type Generator interface {
	// Generate produces a completion for the request.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name returns the adapter's instance name.
	Name() string

	// Close releases the adapter's resources.
	Close() error
}

// ClientConfig configures one generator instance.
type ClientConfig struct {
	// Provider selects the adapter (openai, anthropic, gemini, local).
	Provider string

	// Name is the instance name used in logs and errors. Defaults to
	// Provider.
	Name string

	// Model is the provider's model identifier.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// APIKey is the provider credential. The local provider does not
	// require one.
	APIKey string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps generated tokens per call.
	MaxTokens int

	// Timeout bounds each call. Default: 30 seconds.
	Timeout time.Duration

	// MaxRetries bounds transient-error retries per call. Default: 3.
	MaxRetries int
}

func (c *ClientConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = c.Provider
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1500
	}
}
