package requirements

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RuleSpec is the loosely-typed validation-rule schema consumed from
// configuration:
//
//	{ kind: "not_empty"|"numeric_range"|"enum"|"regex", params: {...}, errorMessage: "..." }
type RuleSpec struct {
	Kind         string                 `json:"kind"`
	Params       map[string]interface{} `json:"params,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
}

// Rule is one parsed validation rule. The set of variants is closed; specs
// with unknown kinds degrade to an always-pass rule at load time so a bad
// catalog entry can never wedge an interview at answer time.
type Rule interface {
	Kind() string
	Validate(answer string) (bool, string)
}

type notEmptyRule struct {
	message string
}

func (r notEmptyRule) Kind() string { return "not_empty" }

func (r notEmptyRule) Validate(answer string) (bool, string) {
	if strings.TrimSpace(answer) == "" {
		return false, r.message
	}
	return true, ""
}

type numericRangeRule struct {
	min, max *float64
	message  string
}

func (r numericRangeRule) Kind() string { return "numeric_range" }

func (r numericRangeRule) Validate(answer string) (bool, string) {
	value, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		return false, r.messageOr(fmt.Sprintf("expected a number, got %q", strings.TrimSpace(answer)))
	}
	if r.min != nil && value < *r.min {
		return false, r.messageOr(fmt.Sprintf("value must be at least %g", *r.min))
	}
	if r.max != nil && value > *r.max {
		return false, r.messageOr(fmt.Sprintf("value must be at most %g", *r.max))
	}
	return true, ""
}

func (r numericRangeRule) messageOr(fallback string) string {
	if r.message != "" {
		return r.message
	}
	return fallback
}

type enumRule struct {
	options []string
	message string
}

func (r enumRule) Kind() string { return "enum" }

func (r enumRule) Validate(answer string) (bool, string) {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	for _, opt := range r.options {
		if strings.ToLower(opt) == normalized {
			return true, ""
		}
	}
	msg := r.message
	if msg == "" {
		msg = fmt.Sprintf("answer must be one of: %s", strings.Join(r.options, ", "))
	}
	return false, msg
}

type regexRule struct {
	pattern *regexp.Regexp
	message string
}

func (r regexRule) Kind() string { return "regex" }

func (r regexRule) Validate(answer string) (bool, string) {
	if r.pattern.MatchString(strings.TrimSpace(answer)) {
		return true, ""
	}
	msg := r.message
	if msg == "" {
		msg = fmt.Sprintf("answer must match pattern %s", r.pattern.String())
	}
	return false, msg
}

// alwaysPassRule is the degraded form of a spec that failed to parse.
type alwaysPassRule struct {
	kind string
}

func (r alwaysPassRule) Kind() string { return r.kind }

func (r alwaysPassRule) Validate(string) (bool, string) { return true, "" }

// ParseRules converts rule specs into the typed variants once, at catalog
// load. Unknown kinds and malformed params are logged and replaced with an
// always-pass rule, never a hard failure.
func ParseRules(specs []RuleSpec, logger *zap.Logger) []Rule {
	if logger == nil {
		logger = zap.NewNop()
	}

	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		rule, err := parseRule(spec)
		if err != nil {
			logger.Warn("Validation rule degraded to always-pass",
				zap.String("kind", spec.Kind),
				zap.Error(err),
			)
			rule = alwaysPassRule{kind: spec.Kind}
		}
		rules = append(rules, rule)
	}
	return rules
}

func parseRule(spec RuleSpec) (Rule, error) {
	switch spec.Kind {
	case "not_empty":
		msg := spec.ErrorMessage
		if msg == "" {
			msg = "an answer is required"
		}
		return notEmptyRule{message: msg}, nil

	case "numeric_range":
		r := numericRangeRule{message: spec.ErrorMessage}
		if v, ok := numericParam(spec.Params, "min"); ok {
			r.min = &v
		}
		if v, ok := numericParam(spec.Params, "max"); ok {
			r.max = &v
		}
		if r.min == nil && r.max == nil {
			return nil, fmt.Errorf("numeric_range needs min or max")
		}
		return r, nil

	case "enum":
		options := stringSliceParam(spec.Params, "options")
		if len(options) == 0 {
			return nil, fmt.Errorf("enum rule has no options")
		}
		return enumRule{options: options, message: spec.ErrorMessage}, nil

	case "regex":
		raw, _ := spec.Params["pattern"].(string)
		if raw == "" {
			return nil, fmt.Errorf("regex rule has no pattern")
		}
		compiled, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		return regexRule{pattern: compiled, message: spec.ErrorMessage}, nil

	default:
		return nil, fmt.Errorf("unknown rule kind %q", spec.Kind)
	}
}

func numericParam(params map[string]interface{}, key string) (float64, bool) {
	raw, ok := params[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringSliceParam(params map[string]interface{}, key string) []string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
