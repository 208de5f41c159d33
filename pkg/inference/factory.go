package inference

import "fmt"

// generatorFactories is the closed set of supported providers. Adding a
// provider means adding one adapter and one entry here.
var generatorFactories = map[string]func(ClientConfig) (Generator, error){
	"openai":    func(c ClientConfig) (Generator, error) { return NewOpenAIGenerator(c) },
	"anthropic": func(c ClientConfig) (Generator, error) { return NewAnthropicGenerator(c) },
	"gemini":    func(c ClientConfig) (Generator, error) { return NewGeminiGenerator(c) },
	"local":     func(c ClientConfig) (Generator, error) { return NewLocalGenerator(c) },
}

// NewGenerator constructs the adapter selected by config.Provider.
func NewGenerator(config ClientConfig) (Generator, error) {
	factory, ok := generatorFactories[config.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown inference provider %q", config.Provider)
	}
	return factory(config)
}

// SupportedProvider reports whether the provider name is known.
func SupportedProvider(name string) bool {
	_, ok := generatorFactories[name]
	return ok
}
