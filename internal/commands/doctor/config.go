package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/pulse/internal/core/config"
)

// ConfigCheck validates the configuration and summarizes its rule set.
type ConfigCheck struct {
	config *config.Config
}

func NewConfigCheck(cfg *config.Config) *ConfigCheck {
	return &ConfigCheck{config: cfg}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.add(StatusFail, "Config loaded", "configuration not loaded")
		return result
	}

	if err := c.config.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			result.fail("validation", err)
			return result
		}
		for _, fe := range fieldErrs {
			label := fe.Field
			if label == "" {
				label = "validation"
			}
			result.fail(label, fe.Err)
		}
		return result
	}

	enabled := 0
	for _, r := range c.config.Rules {
		if r.IsEnabled() {
			enabled++
		}
	}
	result.add(StatusPass, "Config valid",
		fmt.Sprintf("%d rule(s), %d enabled, min confidence %.2f", len(c.config.Rules), enabled, c.config.Quality.MinConfidence))

	for _, w := range c.config.Warnings() {
		label := w.Category
		if w.Item != "" {
			label += " (" + w.Item + ")"
		}
		result.add(StatusWarn, label, w.Message)
	}

	return result
}
