package config

import (
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/pulse/internal/core/rules"
)

// Validate checks that the configuration is valid. Problems are returned as
// criterio.FieldErrors keyed by their YAML path.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.Quality.MinConfidence < 0 || c.Quality.MinConfidence > 1 {
		errs = errs.Append("quality.min_confidence", fmt.Errorf("must be between 0 and 1"))
	}
	if c.Quality.MinTextLength < 0 {
		errs = errs.Append("quality.min_text_length", fmt.Errorf("cannot be negative"))
	}
	if c.Quality.MaxKeysPerMinute < 0 {
		errs = errs.Append("quality.max_keys_per_minute", fmt.Errorf("cannot be negative"))
	}
	if c.Quality.HistorySize < 1 {
		errs = errs.Append("quality.history_size", fmt.Errorf("must be at least 1"))
	}
	if c.Content.MaxKeywords < 1 {
		errs = errs.Append("content.max_keywords", fmt.Errorf("must be at least 1"))
	}
	if c.Session.MaxIdle <= 0 {
		errs = errs.Append("session.max_idle", fmt.Errorf("must be positive"))
	}
	if c.Session.MaxAge <= 0 {
		errs = errs.Append("session.max_age", fmt.Errorf("must be positive"))
	}
	if c.Session.BufferSize < 1 {
		errs = errs.Append("session.buffer_size", fmt.Errorf("must be at least 1"))
	}
	if c.Session.Shards < 1 {
		errs = errs.Append("session.shards", fmt.Errorf("must be at least 1"))
	}
	if c.Store.MaxActivities < 0 {
		errs = errs.Append("store.max_activities", fmt.Errorf("cannot be negative"))
	}

	if err := rules.Validate(c.Rules); err != nil {
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = errs.Append(fe.Field, fe.Err)
			}
		} else {
			errs = errs.Append("rules", err)
		}
	}

	return errs.ToError()
}
