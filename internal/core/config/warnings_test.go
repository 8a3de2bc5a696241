package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/pulse/internal/core/rules"
)

func TestWarnings_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Warnings())
}

func TestWarnings(t *testing.T) {
	disabled := false
	cfg := DefaultConfig()
	cfg.Quality.MinConfidence = 0
	cfg.Categories.Learning = append(cfg.Categories.Learning, "Slack")
	cfg.Rules = []rules.Rule{
		{
			ID:         "off",
			Enabled:    &disabled,
			Conditions: []rules.Condition{{Field: "type", Operator: rules.OpEquals, Value: "mouse"}},
			Actions:    []rules.Action{{Type: rules.ActionAddTag, Value: "x"}},
		},
		{
			ID:         "timer",
			Conditions: []rules.Condition{{Field: "type", Operator: rules.OpEquals, Value: "mouse"}},
			Actions:    []rules.Action{{Type: rules.ActionCalculateDuration}},
		},
		{
			ID:         "count-only",
			Conditions: []rules.Condition{{Field: "type", Operator: rules.OpEquals, Value: "window"}},
		},
	}

	got := map[string]string{}
	for _, w := range cfg.Warnings() {
		got[w.Category+"/"+w.Item] = w.Message
	}

	assert.Equal(t, "rule is disabled", got["Rules/off"])
	assert.Contains(t, got["Rules/timer"], "calculate_duration")
	assert.Contains(t, got["Rules/count-only"], "no actions")
	assert.Equal(t, "listed in both communication and learning; communication wins", got["Categories/Slack"])
	assert.Equal(t, "quality gate is disabled", got["Quality/min_confidence"])
}

func TestWarnings_NoEnabledRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = nil

	warnings := cfg.Warnings()
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "Rules", warnings[0].Category)
		assert.Empty(t, warnings[0].Item)
	}
}
