package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pool.Timeout != DefaultPoolTimeout {
		t.Errorf("expected pool timeout %s, got %s", DefaultPoolTimeout, cfg.Pool.Timeout)
	}
	if cfg.Pool.FailMode != FailOpen {
		t.Errorf("expected fail mode open, got %s", cfg.Pool.FailMode)
	}
	if cfg.Governor.MaxRewriteAttempts != 3 {
		t.Errorf("expected 3 rewrite attempts, got %d", cfg.Governor.MaxRewriteAttempts)
	}
	if cfg.Governor.SeverityBands != DefaultSeverityBands {
		t.Errorf("expected default severity bands, got %+v", cfg.Governor.SeverityBands)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.yaml")

	content := `
governor:
  max_rewrite_attempts: 5
  cache_ttl: 30m
pool:
  timeout: 500ms
  fail_mode: closed
inference:
  provider: anthropic
  model: claude-sonnet-4-5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Governor.MaxRewriteAttempts != 5 {
		t.Errorf("expected 5 rewrite attempts, got %d", cfg.Governor.MaxRewriteAttempts)
	}
	if cfg.Governor.CacheTTL != 30*time.Minute {
		t.Errorf("expected 30m cache TTL, got %s", cfg.Governor.CacheTTL)
	}
	if cfg.Pool.Timeout != 500*time.Millisecond {
		t.Errorf("expected 500ms pool timeout, got %s", cfg.Pool.Timeout)
	}
	if cfg.Pool.FailMode != FailClosed {
		t.Errorf("expected fail mode closed, got %s", cfg.Pool.FailMode)
	}
	if cfg.Inference.Provider != "anthropic" {
		t.Errorf("expected anthropic provider, got %s", cfg.Inference.Provider)
	}

	// Defaults still apply to unset sections
	if cfg.Policy.ActionThreshold != DefaultActionThreshold {
		t.Errorf("expected default action threshold, got %.2f", cfg.Policy.ActionThreshold)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/aegis.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("governor: [not a map"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted thresholds", func(c *Config) { c.Policy.WarningThreshold = 0.9 }},
		{"bad fail mode", func(c *Config) { c.Pool.FailMode = "maybe" }},
		{"bad provider", func(c *Config) { c.Inference.Provider = "cohere" }},
		{"sqlite cache without path", func(c *Config) { c.Cache.Backend = "sqlite" }},
		{"sqlite storage without path", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"bad sweep schedule", func(c *Config) { c.Cache.SweepSchedule = "not cron" }},
		{"non-descending bands", func(c *Config) { c.Governor.SeverityBands = SeverityBands{Low: 0.4, Medium: 0.6, High: 0.8} }},
		{"bad log level", func(c *Config) { c.Telemetry.LogLevel = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.yaml")
	if err := os.WriteFile(path, []byte("pool:\n  timeout: 1s\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("AEGIS_POOL_TIMEOUT", "250ms")
	t.Setenv("AEGIS_INFERENCE_MODEL", "gpt-4o")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Pool.Timeout != 250*time.Millisecond {
		t.Errorf("expected env override 250ms, got %s", cfg.Pool.Timeout)
	}
	if cfg.Inference.Model != "gpt-4o" {
		t.Errorf("expected env override gpt-4o, got %s", cfg.Inference.Model)
	}
}
