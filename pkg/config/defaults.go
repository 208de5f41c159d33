package config

import "time"

// Default values applied to unset configuration fields.
const (
	DefaultMaxRewriteAttempts  = 3
	DefaultMinRewriteLength    = 50
	DefaultCacheTTL            = 60 * time.Minute
	DefaultMaxContextDocuments = 5
	DefaultMaxContextFragments = 10

	DefaultWarningThreshold = 0.5
	DefaultActionThreshold  = 0.7

	DefaultPoolTimeout = 800 * time.Millisecond

	DefaultInferenceTimeout    = 30 * time.Second
	DefaultInferenceMaxRetries = 3
	DefaultInferenceMaxTokens  = 1500

	DefaultSecretsCacheTTL = 5 * time.Minute
)

// DefaultSeverityBands are the default score-to-severity thresholds.
var DefaultSeverityBands = SeverityBands{Low: 0.8, Medium: 0.6, High: 0.4}

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Governor.MaxRewriteAttempts == 0 {
		cfg.Governor.MaxRewriteAttempts = DefaultMaxRewriteAttempts
	}
	if cfg.Governor.MinRewriteLength == 0 {
		cfg.Governor.MinRewriteLength = DefaultMinRewriteLength
	}
	if cfg.Governor.CacheTTL == 0 {
		cfg.Governor.CacheTTL = DefaultCacheTTL
	}
	if cfg.Governor.SeverityBands == (SeverityBands{}) {
		cfg.Governor.SeverityBands = DefaultSeverityBands
	}
	if cfg.Governor.MaxContextDocuments == 0 {
		cfg.Governor.MaxContextDocuments = DefaultMaxContextDocuments
	}
	if cfg.Governor.MaxContextFragments == 0 {
		cfg.Governor.MaxContextFragments = DefaultMaxContextFragments
	}

	if cfg.Policy.WarningThreshold == 0 {
		cfg.Policy.WarningThreshold = DefaultWarningThreshold
	}
	if cfg.Policy.ActionThreshold == 0 {
		cfg.Policy.ActionThreshold = DefaultActionThreshold
	}

	if cfg.Pool.Timeout == 0 {
		cfg.Pool.Timeout = DefaultPoolTimeout
	}
	if cfg.Pool.FailMode == "" {
		cfg.Pool.FailMode = FailOpen
	}

	if cfg.Inference.Provider == "" {
		cfg.Inference.Provider = "openai"
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = "gpt-4"
	}
	if cfg.Inference.Timeout == 0 {
		cfg.Inference.Timeout = DefaultInferenceTimeout
	}
	if cfg.Inference.MaxRetries == 0 {
		cfg.Inference.MaxRetries = DefaultInferenceMaxRetries
	}
	if cfg.Inference.MaxTokens == 0 {
		cfg.Inference.MaxTokens = DefaultInferenceMaxTokens
	}
	if cfg.Inference.Temperature == 0 {
		cfg.Inference.Temperature = 0.7
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = "AEGIS_SECRET_"
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}

	if cfg.Telemetry.LogLevel == "" {
		cfg.Telemetry.LogLevel = "info"
	}
	if cfg.Telemetry.LogFormat == "" {
		cfg.Telemetry.LogFormat = "json"
	}
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
