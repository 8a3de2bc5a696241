package config

import (
	"fmt"
	"strings"

	"github.com/hay-kot/pulse/internal/core/rules"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Warnings returns configuration issues that do not prevent running but are
// likely mistakes.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	enabled := 0
	for _, r := range c.Rules {
		if !r.IsEnabled() {
			warnings = append(warnings, ValidationWarning{
				Category: "Rules",
				Item:     r.ID,
				Message:  "rule is disabled",
			})
			continue
		}
		enabled++

		if len(r.Actions) == 0 {
			warnings = append(warnings, ValidationWarning{
				Category: "Rules",
				Item:     r.ID,
				Message:  "rule has no actions; it only counts hits",
			})
		}
		for _, a := range r.Actions {
			if a.Type == rules.ActionCalculateDuration {
				warnings = append(warnings, ValidationWarning{
					Category: "Rules",
					Item:     r.ID,
					Message:  "calculate_duration has no effect; durations are inferred from session gaps",
				})
			}
		}
	}
	if enabled == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Rules",
			Message:  "no enabled rules; classification relies on heuristics only",
		})
	}

	owner := map[string]string{}
	lists := []struct {
		name    string
		entries []string
	}{
		{"productive", c.Categories.Productive},
		{"distracting", c.Categories.Distracting},
		{"communication", c.Categories.Communication},
		{"learning", c.Categories.Learning},
	}
	for _, l := range lists {
		for _, e := range l.entries {
			key := strings.ToLower(strings.TrimSpace(e))
			if prev, ok := owner[key]; ok && prev != l.name {
				warnings = append(warnings, ValidationWarning{
					Category: "Categories",
					Item:     e,
					Message:  fmt.Sprintf("listed in both %s and %s; %s wins", prev, l.name, prev),
				})
				continue
			}
			owner[key] = l.name
		}
	}

	if c.Quality.MinConfidence == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Quality",
			Item:     "min_confidence",
			Message:  "quality gate is disabled",
		})
	}

	return warnings
}
