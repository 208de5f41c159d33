package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writePolicyFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidatePolicyFile(t *testing.T) {
	dir := t.TempDir()

	valid := writePolicyFile(t, dir, "valid.yaml", `
name: secret-guard
enabled: true
severity: critical
conditions:
  - type: regex
    patterns: ["\\bSECRET\\b"]
actions: [block]
`)
	result := validatePolicyFile(valid)
	if !result.Valid {
		t.Errorf("expected valid, got error %q", result.Error)
	}
	if result.Policy != "secret-guard" {
		t.Errorf("expected policy name, got %q", result.Policy)
	}

	invalid := writePolicyFile(t, dir, "invalid.yaml", `
name: broken
enabled: true
conditions:
  - type: regex
    patterns: ["("]
actions: [block]
`)
	result = validatePolicyFile(invalid)
	if result.Valid {
		t.Error("expected invalid result for an uncompilable pattern")
	}
	if result.Error == "" {
		t.Error("expected an error message")
	}

	result = validatePolicyFile(filepath.Join(dir, "missing.yaml"))
	if result.Valid {
		t.Error("expected invalid result for a missing file")
	}
}
