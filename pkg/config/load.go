package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// AEGIS_SECTION_FIELD (e.g. AEGIS_POOL_TIMEOUT) and always take precedence
// over file-based values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies AEGIS_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("AEGIS_POOL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Pool.Timeout = d
		}
	}
	if val := os.Getenv("AEGIS_POOL_FAIL_MODE"); val != "" {
		cfg.Pool.FailMode = FailMode(val)
	}

	if val := os.Getenv("AEGIS_GOVERNOR_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Governor.CacheTTL = d
		}
	}
	if val := os.Getenv("AEGIS_GOVERNOR_MAX_REWRITE_ATTEMPTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Governor.MaxRewriteAttempts = i
		}
	}

	if val := os.Getenv("AEGIS_POLICY_DIR"); val != "" {
		cfg.Policy.Dir = val
	}

	if val := os.Getenv("AEGIS_INFERENCE_PROVIDER"); val != "" {
		cfg.Inference.Provider = val
	}
	if val := os.Getenv("AEGIS_INFERENCE_MODEL"); val != "" {
		cfg.Inference.Model = val
	}
	if val := os.Getenv("AEGIS_INFERENCE_BASE_URL"); val != "" {
		cfg.Inference.BaseURL = val
	}

	if val := os.Getenv("AEGIS_CACHE_BACKEND"); val != "" {
		cfg.Cache.Backend = val
	}
	if val := os.Getenv("AEGIS_CACHE_PATH"); val != "" {
		cfg.Cache.Path = val
	}
	if val := os.Getenv("AEGIS_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("AEGIS_STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}

	if val := os.Getenv("AEGIS_TELEMETRY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.LogLevel = val
	}
	if val := os.Getenv("AEGIS_TELEMETRY_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.MetricsAddress = val
	}
}
