package governor

import (
	"context"
	"fmt"
	"strings"

	"aegis-hq/aegis/pkg/governance"
	"aegis-hq/aegis/pkg/inference"
	"aegis-hq/aegis/pkg/policy"
)

// declineMessage is the fixed fallback when every rewrite attempt is
// rejected.
const declineMessage = "I'm sorry, but I can't provide a response to that request."

// remediate transforms the candidate according to the decided action.
// allow passes the candidate through, block replaces it, redact strips
// the flagged content, rewrite regenerates under a bounded attempt
// budget.
func (g *Governor) remediate(ctx context.Context, req *Request, augmentedPrompt, candidate string, action governance.Action, violations []governance.Violation, reason string) string {
	switch action {
	case governance.ActionBlock:
		violationErr := &PolicyViolationError{Reason: reason}
		return fmt.Sprintf("This response was blocked: %s", violationErr.Reason)
	case governance.ActionRedact:
		return redactText(candidate, violations)
	case governance.ActionRewrite:
		return g.rewrite(ctx, augmentedPrompt, candidate, reason)
	default:
		return candidate
	}
}

// redactText applies type-specific redaction for each violation. PII
// violations run the full detector catalogue; regex violations redact
// the recorded pattern. Other violation types carry no spans to strip.
func redactText(text string, violations []governance.Violation) string {
	for _, v := range violations {
		switch v.Type {
		case "pii_detected":
			text = policy.RedactPII(text)
		case "regex_match":
			if pattern := v.Metadata["pattern"]; pattern != "" {
				text = policy.RedactPattern(text, pattern)
			}
		}
	}
	return text
}

// rewrite asks the generator for a compliant rendition, up to the
// configured attempt budget. An attempt is accepted only when it is
// long enough to be substantive and actually differs from the original;
// a generation error burns the attempt. Exhaustion yields the fixed
// decline message.
func (g *Governor) rewrite(ctx context.Context, augmentedPrompt, original, reason string) string {
	prompt := buildRewritePrompt(augmentedPrompt, original, reason)

	for attempt := 1; attempt <= g.config.MaxRewriteAttempts; attempt++ {
		resp, err := g.generator.Generate(ctx, &inference.Request{Prompt: prompt})
		if err != nil {
			g.logger.Warn("rewrite attempt failed",
				"attempt", attempt,
				"max_attempts", g.config.MaxRewriteAttempts,
				"error", err,
			)
			continue
		}
		candidate := strings.TrimSpace(resp.Text)
		if len(candidate) < g.config.MinRewriteLength || candidate == original {
			g.logger.Warn("rewrite attempt rejected",
				"attempt", attempt,
				"length", len(candidate),
			)
			continue
		}
		return candidate
	}

	g.logger.Warn("rewrite budget exhausted, declining",
		"max_attempts", g.config.MaxRewriteAttempts)
	return declineMessage
}

func buildRewritePrompt(augmentedPrompt, original, reason string) string {
	var b strings.Builder
	b.WriteString("The following response was flagged by content governance and must be rewritten.\n\n")
	fmt.Fprintf(&b, "Flag reason: %s\n\n", reason)
	fmt.Fprintf(&b, "Original request:\n%s\n\n", augmentedPrompt)
	fmt.Fprintf(&b, "Flagged response:\n%s\n\n", original)
	b.WriteString("Rewrite the response so it fully answers the request without the flagged content. Return only the rewritten response.")
	return b.String()
}
