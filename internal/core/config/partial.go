package config

import "github.com/hay-kot/pulse/internal/core/rules"

// Partial is a configuration update. Nil sections keep their current value;
// non-nil sections replace the current section as a whole.
type Partial struct {
	Quality    *QualityConfig  `yaml:"quality,omitempty"`
	Content    *ContentConfig  `yaml:"content,omitempty"`
	Categories *CategoryConfig `yaml:"categories,omitempty"`
	Rules      *[]rules.Rule   `yaml:"rules,omitempty"`
}

// Merge returns a copy of c with the sections present in p replaced.
func (c Config) Merge(p Partial) Config {
	if p.Quality != nil {
		c.Quality = *p.Quality
	}
	if p.Content != nil {
		c.Content = *p.Content
	}
	if p.Categories != nil {
		c.Categories = *p.Categories
	}
	if p.Rules != nil {
		c.Rules = append([]rules.Rule(nil), (*p.Rules)...)
	}
	return c
}

// Reloadable returns the sections of c that can be swapped into a running
// parser. Session and store settings only apply at startup.
func (c Config) Reloadable() Partial {
	q, ct, cat := c.Quality, c.Content, c.Categories
	rs := append([]rules.Rule(nil), c.Rules...)
	return Partial{
		Quality:    &q,
		Content:    &ct,
		Categories: &cat,
		Rules:      &rs,
	}
}
