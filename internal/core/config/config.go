// Package config handles configuration loading and validation for pulse.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/pulse/internal/core/rules"
)

// Config holds the application configuration.
type Config struct {
	Quality    QualityConfig  `yaml:"quality"`
	Content    ContentConfig  `yaml:"content"`
	Categories CategoryConfig `yaml:"categories"`
	Session    SessionConfig  `yaml:"session"`
	Store      StoreConfig    `yaml:"store"`
	Rules      []rules.Rule   `yaml:"rules"`
	RulesFile  string         `yaml:"rules_file"` // optional YAML file replacing Rules
	DataDir    string         `yaml:"-"`          // set by caller, not from config file
}

// QualityConfig tunes the quality gate.
type QualityConfig struct {
	// MinConfidence is the score below which records are dropped.
	MinConfidence float64 `yaml:"min_confidence"`
	// MinTextLength is the rune count under which text is penalised.
	MinTextLength int `yaml:"min_text_length"`
	// MaxKeysPerMinute flags implausible typing rates. Zero disables the check.
	MaxKeysPerMinute int `yaml:"max_keys_per_minute"`
	// HistorySize bounds the rolling window used for the average quality.
	HistorySize int `yaml:"history_size"`
}

// ContentConfig toggles content extraction features.
type ContentConfig struct {
	ExtractKeywords bool `yaml:"extract_keywords"`
	DetectLanguage  bool `yaml:"detect_language"`
	MaxKeywords     int  `yaml:"max_keywords"`
}

// CategoryConfig lists application names per category. Entries match the
// lower-cased application name as a substring, or as a doublestar glob when
// they contain glob meta characters.
type CategoryConfig struct {
	Productive    []string `yaml:"productive"`
	Distracting   []string `yaml:"distracting"`
	Communication []string `yaml:"communication"`
	Learning      []string `yaml:"learning"`
}

// SessionConfig tunes session aggregation.
type SessionConfig struct {
	// MaxIdle is the largest gap still counted as an activity duration.
	MaxIdle time.Duration `yaml:"max_idle"`
	// MaxAge is the retention age used by prune.
	MaxAge time.Duration `yaml:"max_age"`
	// BufferSize bounds the per-session duration inference buffer.
	BufferSize int `yaml:"buffer_size"`
	// Shards is the number of lock shards sessions are spread over.
	Shards int `yaml:"shards"`
}

// MarshalYAML writes durations in their string form so the output of
// 'pulse config show' can be loaded back as a config file.
func (s SessionConfig) MarshalYAML() (any, error) {
	return struct {
		MaxIdle    string `yaml:"max_idle"`
		MaxAge     string `yaml:"max_age"`
		BufferSize int    `yaml:"buffer_size"`
		Shards     int    `yaml:"shards"`
	}{s.MaxIdle.String(), s.MaxAge.String(), s.BufferSize, s.Shards}, nil
}

// StoreConfig tunes persistence.
type StoreConfig struct {
	// MaxActivities bounds the parsed activity log. Zero keeps everything.
	MaxActivities int `yaml:"max_activities"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Quality: QualityConfig{
			MinConfidence:    0.5,
			MinTextLength:    3,
			MaxKeysPerMinute: 1000,
			HistorySize:      1000,
		},
		Content: ContentConfig{
			ExtractKeywords: true,
			DetectLanguage:  true,
			MaxKeywords:     10,
		},
		Categories: CategoryConfig{
			Productive: []string{
				"vscode", "visual studio", "code*", "intellij", "pycharm", "goland",
				"webstorm", "sublime", "vim", "emacs", "xcode", "cursor", "terminal", "iterm*",
				"alacritty", "kitty", "wezterm", "warp", "microsoft word", "winword*", "excel", "powerpoint",
				"notion", "obsidian", "figma", "postman",
			},
			Distracting: []string{
				"steam", "epic games", "minecraft", "league of legends", "tiktok",
				"instagram", "facebook", "twitter", "reddit",
			},
			Communication: []string{
				"slack", "teams", "discord", "zoom", "skype", "telegram", "whatsapp",
				"wechat", "signal", "outlook", "*mail", "thunderbird", "messages", "lark",
				"feishu", "dingtalk",
			},
			Learning: []string{
				"anki", "kindle", "coursera", "duolingo", "zotero", "books",
			},
		},
		Session: SessionConfig{
			MaxIdle:    5 * time.Minute,
			MaxAge:     24 * time.Hour,
			BufferSize: 100,
			Shards:     16,
		},
		Store: StoreConfig{
			MaxActivities: 10000,
		},
		Rules: rules.Defaults(),
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
// The result is validated.
func Load(configPath, dataDir string) (*Config, error) {
	cfg, err := Read(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation. It is used by commands that report on
// invalid configuration instead of failing on it.
func Read(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	if cfg.RulesFile != "" {
		path := cfg.RulesFile
		if !filepath.IsAbs(path) && configPath != "" {
			path = filepath.Join(filepath.Dir(configPath), path)
		}
		loaded, err := LoadRules(path)
		if err != nil {
			return nil, err
		}
		cfg.Rules = loaded
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// rulesFile is the root structure of a standalone rules file.
type rulesFile struct {
	Rules []rules.Rule `yaml:"rules"`
}

// LoadRules reads a rule set from a YAML file with a top level "rules" key.
func LoadRules(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return f.Rules, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Quality.HistorySize == 0 {
		c.Quality.HistorySize = defaults.Quality.HistorySize
	}
	if c.Content.MaxKeywords == 0 {
		c.Content.MaxKeywords = defaults.Content.MaxKeywords
	}
	if c.Session.MaxIdle == 0 {
		c.Session.MaxIdle = defaults.Session.MaxIdle
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = defaults.Session.MaxAge
	}
	if c.Session.BufferSize == 0 {
		c.Session.BufferSize = defaults.Session.BufferSize
	}
	if c.Session.Shards == 0 {
		c.Session.Shards = defaults.Session.Shards
	}
}

// SessionsFile returns the path to the session summaries JSON file.
func (c *Config) SessionsFile() string {
	return filepath.Join(c.DataDir, "sessions.json")
}

// ActivityDir returns the directory holding the parsed activity log.
func (c *Config) ActivityDir() string {
	return filepath.Join(c.DataDir, "activity")
}

// SpoolDir returns the default directory watched for raw record spool files.
func (c *Config) SpoolDir() string {
	return filepath.Join(c.DataDir, "spool")
}

// LogsDir returns the directory for per-run log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// HistoryFile returns the path to the run history JSON file.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.DataDir, "history.json")
}

// CheckpointsFile returns the path to the spool checkpoint JSON file.
func (c *Config) CheckpointsFile() string {
	return filepath.Join(c.DataDir, "checkpoints.json")
}
