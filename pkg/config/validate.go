package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
func Validate(cfg *Config) error {
	if cfg.Governor.MaxRewriteAttempts < 1 {
		return fmt.Errorf("governor.max_rewrite_attempts must be >= 1, got %d", cfg.Governor.MaxRewriteAttempts)
	}
	if cfg.Governor.CacheTTL < 0 {
		return fmt.Errorf("governor.cache_ttl must not be negative, got %s", cfg.Governor.CacheTTL)
	}

	bands := cfg.Governor.SeverityBands
	if bands.Low <= bands.Medium || bands.Medium <= bands.High {
		return fmt.Errorf("governor.severity_bands must be strictly descending (low > medium > high), got %.2f/%.2f/%.2f",
			bands.Low, bands.Medium, bands.High)
	}
	for name, v := range map[string]float64{"low": bands.Low, "medium": bands.Medium, "high": bands.High} {
		if v < 0 || v > 1 {
			return fmt.Errorf("governor.severity_bands.%s must be in [0,1], got %.2f", name, v)
		}
	}

	if cfg.Policy.WarningThreshold < 0 || cfg.Policy.WarningThreshold > 1 {
		return fmt.Errorf("policy.warning_threshold must be in [0,1], got %.2f", cfg.Policy.WarningThreshold)
	}
	if cfg.Policy.ActionThreshold < 0 || cfg.Policy.ActionThreshold > 1 {
		return fmt.Errorf("policy.action_threshold must be in [0,1], got %.2f", cfg.Policy.ActionThreshold)
	}
	if cfg.Policy.WarningThreshold >= cfg.Policy.ActionThreshold {
		return fmt.Errorf("policy.warning_threshold (%.2f) must be below policy.action_threshold (%.2f)",
			cfg.Policy.WarningThreshold, cfg.Policy.ActionThreshold)
	}

	if cfg.Pool.Timeout <= 0 {
		return fmt.Errorf("pool.timeout must be positive, got %s", cfg.Pool.Timeout)
	}
	if cfg.Pool.FailMode != FailOpen && cfg.Pool.FailMode != FailClosed {
		return fmt.Errorf("pool.fail_mode must be %q or %q, got %q", FailOpen, FailClosed, cfg.Pool.FailMode)
	}
	for i, ev := range cfg.Pool.Evaluators {
		if ev.Name == "" {
			return fmt.Errorf("pool.evaluators[%d].name is required", i)
		}
		switch ev.Type {
		case "openai", "anthropic", "gemini":
		case "local":
			if ev.Endpoint == "" {
				return fmt.Errorf("pool.evaluators[%d] (%s): endpoint is required for the local type", i, ev.Name)
			}
		default:
			return fmt.Errorf("pool.evaluators[%d] (%s): type must be one of openai, anthropic, gemini, local; got %q", i, ev.Name, ev.Type)
		}
	}

	switch cfg.Inference.Provider {
	case "openai", "anthropic", "gemini":
	case "local":
		if cfg.Inference.BaseURL == "" {
			return fmt.Errorf("inference.base_url is required for the local provider")
		}
	default:
		return fmt.Errorf("inference.provider must be one of openai, anthropic, gemini, local; got %q", cfg.Inference.Provider)
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "sqlite":
		if cfg.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the sqlite cache backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or sqlite, got %q", cfg.Cache.Backend)
	}

	if cfg.Cache.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Cache.SweepSchedule); err != nil {
			return fmt.Errorf("invalid cache.sweep_schedule %q: %w", cfg.Cache.SweepSchedule, err)
		}
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite storage backend")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or sqlite, got %q", cfg.Storage.Backend)
	}

	switch cfg.Telemetry.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.log_level must be debug, info, warn, or error; got %q", cfg.Telemetry.LogLevel)
	}
	switch cfg.Telemetry.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.log_format must be json or text, got %q", cfg.Telemetry.LogFormat)
	}

	return nil
}
