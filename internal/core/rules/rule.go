// Package rules implements the declarative rule engine that can override the
// heuristic classification of a raw record.
package rules

import (
	"fmt"
	"regexp"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/pulse/internal/core/activity"
)

// Operator is a condition comparison kind.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpMatches     Operator = "matches"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// ActionKind is a rule action kind.
type ActionKind string

const (
	ActionSetType           ActionKind = "set_type"
	ActionSetCategory       ActionKind = "set_category"
	ActionAddTag            ActionKind = "add_tag"
	ActionExtractContent    ActionKind = "extract_content"
	ActionCalculateDuration ActionKind = "calculate_duration"
)

// Condition compares the value at Field (a dot path into the raw record)
// against Value.
type Condition struct {
	Field         string   `yaml:"field" json:"field"`
	Operator      Operator `yaml:"operator" json:"operator"`
	Value         any      `yaml:"value" json:"value"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// Action is applied when every condition of its rule matches.
//
// set_type and set_category read Value. add_tag reads Value as the tag.
// extract_content runs Pattern against Field and stores the first capture
// group (or the whole match) under Target.
type Action struct {
	Type    ActionKind `yaml:"type" json:"type"`
	Value   string     `yaml:"value,omitempty" json:"value,omitempty"`
	Field   string     `yaml:"field,omitempty" json:"field,omitempty"`
	Pattern string     `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Target  string     `yaml:"target,omitempty" json:"target,omitempty"`
}

// Rule is a prioritised set of conditions and actions. Higher priorities are
// evaluated first. A nil Enabled means enabled.
type Rule struct {
	ID         string      `yaml:"id" json:"id"`
	Name       string      `yaml:"name" json:"name"`
	Priority   int         `yaml:"priority" json:"priority"`
	Enabled    *bool       `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Conditions []Condition `yaml:"conditions" json:"conditions"`
	Actions    []Action    `yaml:"actions" json:"actions"`
}

// IsEnabled reports whether the rule takes part in evaluation.
func (r Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Exclusive reports whether firing this rule stops evaluation of lower
// priority rules.
func (r Rule) Exclusive() bool {
	for _, a := range r.Actions {
		if a.Type == ActionSetType || a.Type == ActionSetCategory {
			return true
		}
	}
	return false
}

// Validate checks a rule set for problems the engine would otherwise tolerate
// silently: unknown operators or actions, bad regular expressions, unknown
// types or categories, duplicate ids and rules that can never match.
func Validate(rules []Rule) error {
	var errs criterio.FieldErrorsBuilder
	seen := make(map[string]bool, len(rules))

	for i, r := range rules {
		field := fmt.Sprintf("rules[%d]", i)

		if r.ID == "" {
			errs = errs.Append(field+".id", fmt.Errorf("id is required"))
		} else if seen[r.ID] {
			errs = errs.Append(field+".id", fmt.Errorf("duplicate id %q", r.ID))
		}
		seen[r.ID] = true

		if len(r.Conditions) == 0 {
			errs = errs.Append(field+".conditions", fmt.Errorf("rule has no conditions and will never match"))
		}

		for j, c := range r.Conditions {
			cfield := fmt.Sprintf("%s.conditions[%d]", field, j)
			if c.Field == "" {
				errs = errs.Append(cfield+".field", fmt.Errorf("field is required"))
			}
			switch c.Operator {
			case OpEquals, OpContains, OpGreaterThan, OpLessThan:
			case OpMatches:
				if _, err := compilePattern(fmt.Sprint(c.Value), c.CaseSensitive); err != nil {
					errs = errs.Append(cfield+".value", fmt.Errorf("invalid regex: %w", err))
				}
			default:
				errs = errs.Append(cfield+".operator", fmt.Errorf("unknown operator %q", c.Operator))
			}
		}

		for j, a := range r.Actions {
			afield := fmt.Sprintf("%s.actions[%d]", field, j)
			switch a.Type {
			case ActionSetType:
				if !activity.Type(a.Value).Valid() {
					errs = errs.Append(afield+".value", fmt.Errorf("unknown activity type %q", a.Value))
				}
			case ActionSetCategory:
				if !activity.Category(a.Value).Valid() {
					errs = errs.Append(afield+".value", fmt.Errorf("unknown category %q", a.Value))
				}
			case ActionAddTag:
				if a.Value == "" {
					errs = errs.Append(afield+".value", fmt.Errorf("tag is required"))
				}
			case ActionExtractContent:
				if a.Field == "" || a.Target == "" {
					errs = errs.Append(afield, fmt.Errorf("extract_content needs field and target"))
				}
				if _, err := regexp.Compile(a.Pattern); err != nil {
					errs = errs.Append(afield+".pattern", fmt.Errorf("invalid regex: %w", err))
				}
			case ActionCalculateDuration:
			default:
				errs = errs.Append(afield+".type", fmt.Errorf("unknown action %q", a.Type))
			}
		}
	}

	return errs.ToError()
}

func compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}
