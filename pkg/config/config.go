package config

import "time"

// Config is the root configuration for the governance engine.
type Config struct {
	// Governor configures the governance pipeline.
	Governor GovernorConfig `yaml:"governor"`

	// Policy configures the policy engine.
	Policy PolicyConfig `yaml:"policy"`

	// Pool configures evaluator pool defaults.
	Pool PoolConfig `yaml:"pool"`

	// Inference configures the primary model provider.
	Inference InferenceConfig `yaml:"inference"`

	// Cache configures the response cache.
	Cache CacheConfig `yaml:"cache"`

	// Storage configures evaluation persistence.
	Storage StorageConfig `yaml:"storage"`

	// Secrets configures secret resolution.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GovernorConfig controls the governance pipeline.
type GovernorConfig struct {
	// MaxRewriteAttempts bounds the rewrite remediation loop.
	MaxRewriteAttempts int `yaml:"max_rewrite_attempts"`

	// MinRewriteLength is the minimum length for an accepted rewrite.
	MinRewriteLength int `yaml:"min_rewrite_length"`

	// CacheTTL is how long allow-action responses stay cached.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// SeverityBands maps evaluator consensus scores to severities.
	// A score >= Low is low severity, >= Medium is medium, >= High is
	// high, and anything below High is critical.
	SeverityBands SeverityBands `yaml:"severity_bands"`

	// MaxContextDocuments bounds retrieved document summaries injected
	// into the generation prompt.
	MaxContextDocuments int `yaml:"max_context_documents"`

	// MaxContextFragments bounds retrieved fragment excerpts injected
	// into the generation prompt.
	MaxContextFragments int `yaml:"max_context_fragments"`
}

// SeverityBands holds the score thresholds for deriving severity from an
// evaluator consensus score. These are tunable defaults, not a contract.
type SeverityBands struct {
	Low    float64 `yaml:"low"`
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

// PolicyConfig controls policy loading and evaluation.
type PolicyConfig struct {
	// Dir is an optional directory of YAML policy files. When set, the
	// engine loads policies from disk and hot-reloads on change.
	Dir string `yaml:"dir"`

	// WarningThreshold is the default confidence above which a policy
	// takes its warning action instead of allowing.
	WarningThreshold float64 `yaml:"warning_threshold"`

	// ActionThreshold is the default confidence above which a policy
	// takes its primary action.
	ActionThreshold float64 `yaml:"action_threshold"`
}

// FailMode selects the pool's behavior when every evaluator fails.
type FailMode string

const (
	// FailOpen returns a neutral allow aggregate when all evaluators fail.
	FailOpen FailMode = "open"

	// FailClosed returns a block aggregate when all evaluators fail.
	FailClosed FailMode = "closed"
)

// PoolConfig controls evaluator pool defaults.
type PoolConfig struct {
	// Timeout is the per-evaluator-call time budget.
	Timeout time.Duration `yaml:"timeout"`

	// FailMode selects fail-open or fail-closed when zero evaluators
	// succeed. Fail-open favors availability; fail-closed favors safety.
	FailMode FailMode `yaml:"fail_mode"`

	// Evaluators are the pool members. An empty pool degrades to the
	// configured fail mode on every run.
	Evaluators []EvaluatorConfig `yaml:"evaluators"`
}

// EvaluatorConfig describes one judge model in the evaluator pool.
type EvaluatorConfig struct {
	// ID is the evaluator's unique identifier.
	ID string `yaml:"id"`

	// Name is the evaluator's display name.
	Name string `yaml:"name"`

	// Type selects the provider adapter (openai, anthropic, gemini, local).
	Type string `yaml:"type"`

	// Model is the judge model identifier.
	Model string `yaml:"model"`

	// Endpoint overrides the provider's default endpoint. Required for
	// the local adapter.
	Endpoint string `yaml:"endpoint"`

	// CredentialName names the secret holding the provider credential.
	CredentialName string `yaml:"credential_name"`

	// Temperature controls judge sampling randomness.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps verdict tokens per call.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout overrides the pool's per-call budget for this evaluator.
	Timeout time.Duration `yaml:"timeout"`
}

// InferenceConfig configures the primary generation model.
type InferenceConfig struct {
	// Provider selects the primary model adapter (openai, anthropic, gemini).
	Provider string `yaml:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `yaml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKeySecret names the secret holding the provider credential.
	APIKeySecret string `yaml:"api_key_secret"`

	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps generated tokens per call.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds each generation call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries bounds transient-error retries per call.
	MaxRetries int `yaml:"max_retries"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Backend selects the cache implementation ("memory" or "sqlite").
	Backend string `yaml:"backend"`

	// Path is the SQLite database path (sqlite backend only).
	Path string `yaml:"path"`

	// SweepSchedule is an optional cron expression for sweeping expired
	// entries. Lazy expiry is correct without it; the sweep reclaims space.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// StorageConfig configures evaluation/violation persistence.
type StorageConfig struct {
	// Backend selects the store implementation ("memory" or "sqlite").
	Backend string `yaml:"backend"`

	// Path is the SQLite database path (sqlite backend only).
	Path string `yaml:"path"`
}

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	// EnvPrefix is prepended to environment variable secret lookups.
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is an optional directory of secret files, one secret per file
	// (Kubernetes-style mounts). Files are watched and reloaded on change.
	Dir string `yaml:"dir"`

	// CacheTTL is how long resolved secrets are cached.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFormat is the log output format (json or text).
	LogFormat string `yaml:"log_format"`

	// MetricsAddress is the listen address for the Prometheus endpoint.
	// Empty disables the endpoint.
	MetricsAddress string `yaml:"metrics_address"`
}
