package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"aegis-hq/aegis/pkg/governance"
)

// conditionFunc evaluates one condition against a text. A nil violation
// means the condition did not fire. Errors and panics are contained by
// the engine; a failing condition degrades to "no violation".
type conditionFunc func(text string, cond *Condition, evalCtx map[string]string, severity governance.Severity, rule string) (*governance.Violation, error)

var conditionFuncs = map[ConditionType]conditionFunc{
	ConditionRegex:          evalRegex,
	ConditionPII:            evalPII,
	ConditionClassification: evalClassification,
	ConditionSentiment:      evalSentiment,
	ConditionToxicity:       evalToxicity,
	ConditionCustom:         evalCustom,
}

// patternCache holds compiled regexes keyed by (pattern, flags) so a
// pattern is compiled at most once per process lifetime.
var patternCache sync.Map

func compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	if cached, ok := patternCache.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}

// evalRegex fires on the first matching pattern with confidence 1.0.
// Metadata carries the pattern and the matched span offsets, never the
// matched text.
func evalRegex(text string, cond *Condition, _ map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	for _, pattern := range cond.Patterns {
		re, err := compilePattern(pattern, cond.CaseSensitive)
		if err != nil {
			// Skip the uncompilable pattern, not the whole condition.
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		return &governance.Violation{
			Type:       "regex_match",
			Severity:   severity,
			Rule:       rule,
			Confidence: 1.0,
			Metadata: map[string]string{
				"pattern":     pattern,
				"match_start": strconv.Itoa(loc[0]),
				"match_end":   strconv.Itoa(loc[1]),
			},
		}, nil
	}
	return nil, nil
}

// piiDetectors is the fixed PII catalogue. Keys double as the
// pii_types enum in the policy schema.
var piiDetectors = map[string]*regexp.Regexp{
	"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"phone":       regexp.MustCompile(`\b(?:\+?1[-. ]?)?(?:\(\d{3}\)|\d{3})[-. ]?\d{3}[-. ]?\d{4}\b`),
	"credit_card": regexp.MustCompile(`\b(?:\d{4}[- ]?){3}\d{4}\b`),
	"ip_address":  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// piiCatalogueOrder keeps detector iteration deterministic.
var piiCatalogueOrder = []string{"ssn", "email", "phone", "credit_card", "ip_address"}

// evalPII fires with confidence 0.9 when any selected detector matches.
// Metadata reports which detectors fired and how often; the matched
// text itself is never recorded.
func evalPII(text string, cond *Condition, _ map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	selected := cond.PIITypes
	if len(selected) == 0 {
		selected = piiCatalogueOrder
	}

	var fired []string
	matchCount := 0
	for _, name := range selected {
		re, ok := piiDetectors[name]
		if !ok {
			continue
		}
		matches := re.FindAllStringIndex(text, -1)
		if len(matches) > 0 {
			fired = append(fired, name)
			matchCount += len(matches)
		}
	}
	if len(fired) == 0 {
		return nil, nil
	}

	return &governance.Violation{
		Type:       "pii_detected",
		Severity:   severity,
		Rule:       rule,
		Confidence: 0.9,
		Metadata: map[string]string{
			"pii_types":   strings.Join(fired, ","),
			"match_count": strconv.Itoa(matchCount),
		},
	}, nil
}

// evalClassification fires when the context-supplied sensitivity label
// exactly matches a blocked label.
func evalClassification(_ string, cond *Condition, evalCtx map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	label, ok := evalCtx["classification"]
	if !ok || label == "" {
		return nil, nil
	}
	for _, blocked := range cond.BlockedLabels {
		if label == blocked {
			return &governance.Violation{
				Type:       "classification_restricted",
				Severity:   severity,
				Rule:       rule,
				Confidence: 1.0,
				Metadata:   map[string]string{"classification": label},
			}, nil
		}
	}
	return nil, nil
}

var negativeLexicon = []string{
	"hate", "terrible", "awful", "horrible", "disgusting",
	"worthless", "useless", "pathetic", "miserable", "dreadful",
}

var toxicLexicon = []string{
	"idiot", "stupid", "moron", "loser", "trash",
	"shut up", "kill yourself", "garbage human", "imbecile", "scum",
}

// lexiconScore maps the number of distinct matched terms onto [0, 1]:
// one match scores 0.5, each additional match adds 0.2.
func lexiconScore(text string, lexicon []string) float64 {
	lower := strings.ToLower(text)
	matches := 0
	for _, term := range lexicon {
		if strings.Contains(lower, term) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	score := 0.5 + 0.2*float64(matches-1)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func evalSentiment(text string, cond *Condition, _ map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	threshold := cond.Threshold
	if threshold == 0 {
		threshold = 0.7
	}
	score := lexiconScore(text, negativeLexicon)
	if score < threshold {
		return nil, nil
	}
	return &governance.Violation{
		Type:       "negative_sentiment",
		Severity:   severity,
		Rule:       rule,
		Confidence: score,
		Metadata:   map[string]string{"score": strconv.FormatFloat(score, 'f', 2, 64)},
	}, nil
}

func evalToxicity(text string, cond *Condition, _ map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	threshold := cond.Threshold
	if threshold == 0 {
		threshold = 0.8
	}
	score := lexiconScore(text, toxicLexicon)
	if score < threshold {
		return nil, nil
	}
	return &governance.Violation{
		Type:       "toxic_content",
		Severity:   severity,
		Rule:       rule,
		Confidence: score,
		Metadata:   map[string]string{"score": strconv.FormatFloat(score, 'f', 2, 64)},
	}, nil
}

const (
	customRuleTimeOfDay = "time_of_day"
	customRuleActorRole = "actor_role"
)

// evalCustom dispatches named business-rule predicates over the context
// map.
func evalCustom(_ string, cond *Condition, evalCtx map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	switch cond.Rule {
	case customRuleTimeOfDay:
		return evalTimeOfDay(cond, evalCtx, severity, rule)
	case customRuleActorRole:
		return evalActorRole(cond, evalCtx, severity, rule)
	default:
		return nil, fmt.Errorf("unknown custom rule %q", cond.Rule)
	}
}

// evalTimeOfDay fires outside the allowed [start, end) window. The
// context may supply "now" as HH:MM for deterministic evaluation.
func evalTimeOfDay(cond *Condition, evalCtx map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	start, err := time.Parse("15:04", cond.Params["allowed_start"])
	if err != nil {
		return nil, fmt.Errorf("invalid allowed_start: %w", err)
	}
	end, err := time.Parse("15:04", cond.Params["allowed_end"])
	if err != nil {
		return nil, fmt.Errorf("invalid allowed_end: %w", err)
	}

	var now time.Time
	if clock, ok := evalCtx["now"]; ok {
		now, err = time.Parse("15:04", clock)
		if err != nil {
			return nil, fmt.Errorf("invalid context clock: %w", err)
		}
	} else {
		wall := time.Now()
		now = time.Date(0, 1, 1, wall.Hour(), wall.Minute(), 0, 0, time.UTC)
	}

	minutes := now.Hour()*60 + now.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	inside := minutes >= startMin && minutes < endMin
	if startMin > endMin { // window wraps midnight
		inside = minutes >= startMin || minutes < endMin
	}
	if inside {
		return nil, nil
	}
	return &governance.Violation{
		Type:       "custom_rule",
		Severity:   severity,
		Rule:       rule,
		Confidence: 1.0,
		Metadata:   map[string]string{"rule": customRuleTimeOfDay},
	}, nil
}

// evalActorRole fires when the context-supplied actor role is in the
// blocked set.
func evalActorRole(cond *Condition, evalCtx map[string]string, severity governance.Severity, rule string) (*governance.Violation, error) {
	role, ok := evalCtx["actor_role"]
	if !ok || role == "" {
		return nil, nil
	}
	for _, blocked := range strings.Split(cond.Params["blocked_roles"], ",") {
		if role == strings.TrimSpace(blocked) {
			return &governance.Violation{
				Type:       "custom_rule",
				Severity:   severity,
				Rule:       rule,
				Confidence: 1.0,
				Metadata:   map[string]string{"rule": customRuleActorRole, "actor_role": role},
			}, nil
		}
	}
	return nil, nil
}
