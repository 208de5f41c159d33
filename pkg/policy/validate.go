package policy

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"aegis-hq/aegis/pkg/governance"
)

// ParsePolicy parses and validates one YAML policy document. Invalid
// documents are rejected here, before the policy can ever be evaluated.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &ConfigurationError{Field: "document", Message: fmt.Sprintf("malformed YAML: %v", err)}
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks a policy against the schema: required fields, closed
// enums, compilable patterns, and threshold ordering. Defaults are
// filled in place (severity, custom rule params are left untouched).
func Validate(p *Policy) error {
	if p.Name == "" {
		return &ConfigurationError{Field: "name", Message: "name is required"}
	}
	if len(p.Conditions) == 0 {
		return &ConfigurationError{Policy: p.Name, Field: "conditions", Message: "at least one condition is required"}
	}
	if len(p.Actions) == 0 {
		return &ConfigurationError{Policy: p.Name, Field: "actions", Message: "at least one action is required"}
	}

	for _, a := range p.Actions {
		if !a.Valid() {
			return &ConfigurationError{Policy: p.Name, Field: "actions", Message: fmt.Sprintf("unknown action %q", a)}
		}
	}

	if p.Severity == "" {
		p.Severity = governance.SeverityMedium
	} else if !p.Severity.Valid() {
		return &ConfigurationError{Policy: p.Name, Field: "severity", Message: fmt.Sprintf("unknown severity %q", p.Severity)}
	}

	if p.WarningThreshold < 0 || p.WarningThreshold > 1 {
		return &ConfigurationError{Policy: p.Name, Field: "warning_threshold", Message: "must be in [0, 1]"}
	}
	if p.ActionThreshold < 0 || p.ActionThreshold > 1 {
		return &ConfigurationError{Policy: p.Name, Field: "action_threshold", Message: "must be in [0, 1]"}
	}
	if p.WarningThreshold > 0 && p.ActionThreshold > 0 && p.WarningThreshold >= p.ActionThreshold {
		return &ConfigurationError{Policy: p.Name, Field: "warning_threshold", Message: "must be below action_threshold"}
	}

	for i := range p.Conditions {
		if err := validateCondition(p.Name, i, &p.Conditions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(policyName string, index int, c *Condition) error {
	field := fmt.Sprintf("conditions[%d]", index)

	if !validConditionTypes[c.Type] {
		return &ConfigurationError{Policy: policyName, Field: field, Message: fmt.Sprintf("unknown condition type %q", c.Type)}
	}

	switch c.Type {
	case ConditionRegex:
		if len(c.Patterns) == 0 {
			return &ConfigurationError{Policy: policyName, Field: field, Message: "regex condition requires at least one pattern"}
		}
		for _, pattern := range c.Patterns {
			expr := pattern
			if !c.CaseSensitive {
				expr = "(?i)" + expr
			}
			if _, err := regexp.Compile(expr); err != nil {
				return &ConfigurationError{Policy: policyName, Field: field, Message: fmt.Sprintf("pattern %q does not compile: %v", pattern, err)}
			}
		}
	case ConditionPII:
		for _, t := range c.PIITypes {
			if _, ok := piiDetectors[t]; !ok {
				return &ConfigurationError{Policy: policyName, Field: field, Message: fmt.Sprintf("unknown pii type %q", t)}
			}
		}
	case ConditionClassification:
		if len(c.BlockedLabels) == 0 {
			return &ConfigurationError{Policy: policyName, Field: field, Message: "classification condition requires blocked_labels"}
		}
	case ConditionSentiment, ConditionToxicity:
		if c.Threshold < 0 || c.Threshold > 1 {
			return &ConfigurationError{Policy: policyName, Field: field, Message: "threshold must be in [0, 1]"}
		}
	case ConditionCustom:
		switch c.Rule {
		case customRuleTimeOfDay, customRuleActorRole:
		case "":
			return &ConfigurationError{Policy: policyName, Field: field, Message: "custom condition requires a rule"}
		default:
			return &ConfigurationError{Policy: policyName, Field: field, Message: fmt.Sprintf("unknown custom rule %q", c.Rule)}
		}
	}
	return nil
}
