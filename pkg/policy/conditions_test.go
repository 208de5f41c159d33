package policy

import (
	"strings"
	"testing"

	"aegis-hq/aegis/pkg/governance"
)

func TestEvalRegex(t *testing.T) {
	cond := &Condition{
		Type:          ConditionRegex,
		Patterns:      []string{`\bSECRET\b`},
		CaseSensitive: true,
	}

	v, err := evalRegex("this is a SECRET plan", cond, nil, governance.SeverityHigh, "secret-guard")
	if err != nil {
		t.Fatalf("evalRegex failed: %v", err)
	}
	if v == nil {
		t.Fatal("expected a violation")
	}
	if v.Type != "regex_match" {
		t.Errorf("expected type regex_match, got %s", v.Type)
	}
	if v.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", v.Confidence)
	}
	if v.Metadata["match_start"] != "10" || v.Metadata["match_end"] != "16" {
		t.Errorf("expected span offsets 10..16, got %s..%s", v.Metadata["match_start"], v.Metadata["match_end"])
	}

	// Case-sensitive pattern must not fire on lowercase text.
	if v, _ := evalRegex("this is a secret plan", cond, nil, governance.SeverityHigh, "secret-guard"); v != nil {
		t.Error("case-sensitive pattern fired on lowercase text")
	}

	// Insensitive matching is the default.
	insensitive := &Condition{Type: ConditionRegex, Patterns: []string{`\bSECRET\b`}}
	if v, _ := evalRegex("a secret plan", insensitive, nil, governance.SeverityHigh, "secret-guard"); v == nil {
		t.Error("case-insensitive pattern did not fire on lowercase text")
	}
}

func TestEvalPII(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		piiTypes []string
		want     string // expected pii_types metadata, "" for no violation
	}{
		{"ssn", "my ssn is 123-45-6789", nil, "ssn"},
		{"email", "reach me at alice@example.com today", nil, "email"},
		{"phone", "call me at 555-123-4567", nil, "phone"},
		{"credit card", "card 4111 1111 1111 1111 expires soon", nil, "credit_card"},
		{"ip address", "server at 10.0.0.1 is down", nil, "ip_address"},
		{"selected type only", "reach me at alice@example.com", []string{"phone"}, ""},
		{"clean text", "nothing sensitive here", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := &Condition{Type: ConditionPII, PIITypes: tt.piiTypes}
			v, err := evalPII(tt.text, cond, nil, governance.SeverityHigh, "pii-guard")
			if err != nil {
				t.Fatalf("evalPII failed: %v", err)
			}
			if tt.want == "" {
				if v != nil {
					t.Fatalf("expected no violation, got %+v", v)
				}
				return
			}
			if v == nil {
				t.Fatal("expected a violation")
			}
			if v.Confidence != 0.9 {
				t.Errorf("expected confidence 0.9, got %f", v.Confidence)
			}
			if !strings.Contains(v.Metadata["pii_types"], tt.want) {
				t.Errorf("expected pii_types to contain %s, got %s", tt.want, v.Metadata["pii_types"])
			}
			// The raw match must never leak into metadata.
			for key, value := range v.Metadata {
				if strings.Contains(tt.text, value) && len(value) > 3 {
					t.Errorf("metadata %s=%q leaks matched text", key, value)
				}
			}
		})
	}
}

func TestEvalClassification(t *testing.T) {
	cond := &Condition{Type: ConditionClassification, BlockedLabels: []string{"restricted", "top_secret"}}

	v, _ := evalClassification("any text", cond, map[string]string{"classification": "restricted"}, governance.SeverityCritical, "class-guard")
	if v == nil || v.Type != "classification_restricted" {
		t.Fatalf("expected classification_restricted violation, got %+v", v)
	}

	// Exact match only; prefixes do not count.
	if v, _ := evalClassification("any text", cond, map[string]string{"classification": "restricted-lite"}, governance.SeverityCritical, "class-guard"); v != nil {
		t.Error("expected no violation for non-exact label")
	}
	if v, _ := evalClassification("any text", cond, nil, governance.SeverityCritical, "class-guard"); v != nil {
		t.Error("expected no violation without a classification label")
	}
}

func TestEvalToxicity_Threshold(t *testing.T) {
	cond := &Condition{Type: ConditionToxicity} // default threshold 0.8

	// Two lexicon terms score 0.7, below the default threshold.
	if v, _ := evalToxicity("you idiot, you are stupid", cond, nil, governance.SeverityHigh, "tox"); v != nil {
		t.Errorf("expected no violation at score 0.7, got %+v", v)
	}

	// Three terms score 0.9.
	v, _ := evalToxicity("you stupid idiot, total moron", cond, nil, governance.SeverityHigh, "tox")
	if v == nil {
		t.Fatal("expected a violation at score 0.9")
	}
	if v.Type != "toxic_content" {
		t.Errorf("expected type toxic_content, got %s", v.Type)
	}
}

func TestEvalSentiment_Threshold(t *testing.T) {
	cond := &Condition{Type: ConditionSentiment, Threshold: 0.5}

	v, _ := evalSentiment("this is terrible", cond, nil, governance.SeverityLow, "sent")
	if v == nil || v.Confidence != 0.5 {
		t.Fatalf("expected violation with confidence 0.5, got %+v", v)
	}
	if v2, _ := evalSentiment("this is wonderful", cond, nil, governance.SeverityLow, "sent"); v2 != nil {
		t.Errorf("expected no violation on positive text, got %+v", v2)
	}
}

func TestEvalCustom_TimeOfDay(t *testing.T) {
	cond := &Condition{
		Type:   ConditionCustom,
		Rule:   customRuleTimeOfDay,
		Params: map[string]string{"allowed_start": "09:00", "allowed_end": "17:00"},
	}

	if v, _ := evalCustom("", cond, map[string]string{"now": "12:00"}, governance.SeverityMedium, "hours"); v != nil {
		t.Errorf("expected no violation inside window, got %+v", v)
	}
	if v, _ := evalCustom("", cond, map[string]string{"now": "22:30"}, governance.SeverityMedium, "hours"); v == nil {
		t.Error("expected violation outside window")
	}

	// Window wrapping midnight.
	wrap := &Condition{
		Type:   ConditionCustom,
		Rule:   customRuleTimeOfDay,
		Params: map[string]string{"allowed_start": "22:00", "allowed_end": "06:00"},
	}
	if v, _ := evalCustom("", wrap, map[string]string{"now": "23:00"}, governance.SeverityMedium, "hours"); v != nil {
		t.Errorf("expected no violation inside wrapped window, got %+v", v)
	}
	if v, _ := evalCustom("", wrap, map[string]string{"now": "12:00"}, governance.SeverityMedium, "hours"); v == nil {
		t.Error("expected violation outside wrapped window")
	}
}

func TestEvalCustom_ActorRole(t *testing.T) {
	cond := &Condition{
		Type:   ConditionCustom,
		Rule:   customRuleActorRole,
		Params: map[string]string{"blocked_roles": "intern, contractor"},
	}

	if v, _ := evalCustom("", cond, map[string]string{"actor_role": "contractor"}, governance.SeverityMedium, "roles"); v == nil {
		t.Error("expected violation for blocked role")
	}
	if v, _ := evalCustom("", cond, map[string]string{"actor_role": "admin"}, governance.SeverityMedium, "roles"); v != nil {
		t.Errorf("expected no violation for allowed role, got %+v", v)
	}
}

func TestCompilePattern_Cached(t *testing.T) {
	first, err := compilePattern(`\btest-cache-key\b`, true)
	if err != nil {
		t.Fatalf("compilePattern failed: %v", err)
	}
	second, err := compilePattern(`\btest-cache-key\b`, true)
	if err != nil {
		t.Fatalf("compilePattern failed: %v", err)
	}
	if first != second {
		t.Error("expected the same compiled regex instance from the cache")
	}

	// Different flags are a different cache entry.
	insensitive, err := compilePattern(`\btest-cache-key\b`, false)
	if err != nil {
		t.Fatalf("compilePattern failed: %v", err)
	}
	if insensitive == first {
		t.Error("expected case-insensitive variant to be a separate entry")
	}
}
