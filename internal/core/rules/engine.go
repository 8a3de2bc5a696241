package rules

import (
	"cmp"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/activity"
)

// Result is the overlay produced by applying the rule set to one record.
// Type and Category are empty when no fired rule set them.
type Result struct {
	Type         activity.Type     `json:"type,omitempty"`
	Category     activity.Category `json:"category,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Content      map[string]string `json:"content,omitempty"`
	AppliedRules []string          `json:"applied_rules,omitempty"`
}

type compiledCondition struct {
	Condition
	re *regexp.Regexp // set for OpMatches when the pattern compiled
}

type compiledAction struct {
	Action
	re *regexp.Regexp // set for ActionExtractContent when the pattern compiled
}

type compiledRule struct {
	rule       Rule
	conditions []compiledCondition
	actions    []compiledAction
	exclusive  bool
	hits       *atomic.Int64
}

// Engine evaluates an immutable, priority ordered rule set. It is safe for
// concurrent use; the only mutable state is the per-rule hit counters.
type Engine struct {
	rules []compiledRule
	log   zerolog.Logger
}

// NewEngine compiles rules into an engine. Rules are ordered by priority,
// highest first; rules with equal priority keep their input order. Invalid
// regular expressions are logged and the affected condition never matches.
func NewEngine(rules []Rule, log zerolog.Logger) *Engine {
	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b Rule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	e := &Engine{
		rules: make([]compiledRule, 0, len(ordered)),
		log:   log,
	}

	for _, r := range ordered {
		cr := compiledRule{
			rule:      r,
			exclusive: r.Exclusive(),
			hits:      &atomic.Int64{},
		}

		for _, c := range r.Conditions {
			cc := compiledCondition{Condition: c}
			if c.Operator == OpMatches {
				re, err := compilePattern(fmt.Sprint(c.Value), c.CaseSensitive)
				if err != nil {
					log.Warn().Err(err).Str("rule_id", r.ID).Str("field", c.Field).Msg("invalid condition regex, condition will not match")
				}
				cc.re = re
			}
			cr.conditions = append(cr.conditions, cc)
		}

		for _, a := range r.Actions {
			ca := compiledAction{Action: a}
			if a.Type == ActionExtractContent {
				re, err := regexp.Compile(a.Pattern)
				if err != nil {
					log.Warn().Err(err).Str("rule_id", r.ID).Str("target", a.Target).Msg("invalid extract regex, action skipped")
				}
				ca.re = re
			}
			cr.actions = append(cr.actions, ca)
		}

		e.rules = append(e.rules, cr)
	}

	return e
}

// Rules returns the rule set in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.rule
	}
	return out
}

// Hits returns how often each rule has fired since the engine was built.
func (e *Engine) Hits() map[string]int64 {
	out := make(map[string]int64, len(e.rules))
	for _, r := range e.rules {
		out[r.rule.ID] = r.hits.Load()
	}
	return out
}

// Apply evaluates the rule set against raw. The returned Result is a pure
// function of the rule set and the record.
func (e *Engine) Apply(raw activity.RawRecord) Result {
	var (
		res    Result
		fields = raw.Fields()
	)

	for _, r := range e.rules {
		if !r.rule.IsEnabled() || !e.matches(r, fields) {
			continue
		}

		for _, a := range r.actions {
			e.applyAction(r.rule.ID, a, fields, &res)
		}

		res.AppliedRules = append(res.AppliedRules, r.rule.ID)
		r.hits.Add(1)

		if r.exclusive {
			break
		}
	}

	return res
}

// matches reports whether every condition holds. A rule without conditions
// never matches.
func (e *Engine) matches(r compiledRule, fields map[string]any) bool {
	if len(r.conditions) == 0 {
		return false
	}
	for _, c := range r.conditions {
		if !e.evalCondition(r.rule.ID, c, fields) {
			return false
		}
	}
	return true
}

func (e *Engine) evalCondition(ruleID string, c compiledCondition, fields map[string]any) bool {
	value, ok := activity.LookupPath(fields, c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return equals(value, c.Value, c.CaseSensitive)
	case OpContains:
		return contains(value, c.Value, c.CaseSensitive)
	case OpMatches:
		if c.re == nil {
			return false
		}
		return c.re.MatchString(stringify(value))
	case OpGreaterThan:
		a, okA := toFloat(value)
		b, okB := toFloat(c.Value)
		return okA && okB && a > b
	case OpLessThan:
		a, okA := toFloat(value)
		b, okB := toFloat(c.Value)
		return okA && okB && a < b
	default:
		e.log.Warn().Str("rule_id", ruleID).Str("operator", string(c.Operator)).Msg("unknown operator, condition will not match")
		return false
	}
}

func (e *Engine) applyAction(ruleID string, a compiledAction, fields map[string]any, res *Result) {
	switch a.Type {
	case ActionSetType:
		res.Type = activity.Type(a.Value)
	case ActionSetCategory:
		res.Category = activity.Category(a.Value)
	case ActionAddTag:
		if a.Value != "" && !slices.Contains(res.Tags, a.Value) {
			res.Tags = append(res.Tags, a.Value)
		}
	case ActionExtractContent:
		if a.re == nil {
			return
		}
		value, ok := activity.LookupPath(fields, a.Field)
		if !ok {
			return
		}
		m := a.re.FindStringSubmatch(stringify(value))
		if m == nil {
			return
		}
		captured := m[0]
		if len(m) > 1 {
			captured = m[1]
		}
		if res.Content == nil {
			res.Content = map[string]string{}
		}
		res.Content[a.Target] = captured
	case ActionCalculateDuration:
		// Durations are inferred by the session aggregator.
	default:
		e.log.Warn().Str("rule_id", ruleID).Str("action", string(a.Type)).Msg("unknown action, skipped")
	}
}

func equals(value, want any, caseSensitive bool) bool {
	if a, ok := toFloat(value); ok {
		if b, ok := toFloat(want); ok {
			return a == b
		}
	}
	if b, ok := value.(bool); ok {
		if w, ok := want.(bool); ok {
			return b == w
		}
	}
	return foldEqual(stringify(value), stringify(want), caseSensitive)
}

func contains(value, want any, caseSensitive bool) bool {
	if list, ok := value.([]any); ok {
		for _, item := range list {
			if equals(item, want, caseSensitive) {
				return true
			}
		}
		return false
	}

	haystack, needle := stringify(value), stringify(want)
	if !caseSensitive {
		haystack, needle = strings.ToLower(haystack), strings.ToLower(needle)
	}
	return strings.Contains(haystack, needle)
}

func foldEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
