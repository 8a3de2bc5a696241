package rules

// IdleThresholdMillis is the idle_time above which the seed idle rule fires.
const IdleThresholdMillis = 300000

// Defaults returns the seed rule set. It is plain data and is replaced as a
// whole by a configured rule list.
func Defaults() []Rule {
	return []Rule{
		{
			ID:       "idle-detection",
			Name:     "Idle time above threshold",
			Priority: 200,
			Conditions: []Condition{
				{Field: "data.idle_time", Operator: OpGreaterThan, Value: IdleThresholdMillis},
			},
			Actions: []Action{
				{Type: ActionSetType, Value: "idle"},
				{Type: ActionSetCategory, Value: "break"},
			},
		},
		{
			ID:       "ide-coding",
			Name:     "IDE application",
			Priority: 100,
			Conditions: []Condition{
				{
					Field:    "context.application",
					Operator: OpMatches,
					Value:    `\b(vscode|visual studio|code|intellij|idea|pycharm|goland|webstorm|clion|rider|sublime|vim|nvim|neovim|emacs|xcode|android studio|cursor|zed)\b`,
				},
			},
			Actions: []Action{
				{Type: ActionSetType, Value: "coding"},
				{Type: ActionSetCategory, Value: "productive"},
				{Type: ActionAddTag, Value: "ide"},
			},
		},
		{
			ID:       "youtube-entertainment",
			Name:     "YouTube domain",
			Priority: 90,
			Conditions: []Condition{
				{Field: "context.url", Operator: OpMatches, Value: `^https?://([a-z0-9-]+\.)*(youtube\.com|youtu\.be)(/|$)`},
			},
			Actions: []Action{
				{Type: ActionSetType, Value: "browsing"},
				{Type: ActionSetCategory, Value: "entertainment"},
				{Type: ActionExtractContent, Field: "context.url", Pattern: `[?&]v=([\w-]+)`, Target: "video_id"},
			},
		},
		{
			ID:       "markdown-documenting",
			Name:     "Markdown-like text",
			Priority: 80,
			Conditions: []Condition{
				{Field: "text", Operator: OpMatches, Value: `(?m)^#{1,6}\s+\S|^\s*[-*]\s+\S|\*\*[^*]+\*\*|\[[^\]]+\]\([^)]+\)|^\x60\x60\x60`},
			},
			Actions: []Action{
				{Type: ActionSetType, Value: "documenting"},
				{Type: ActionSetCategory, Value: "productive"},
				{Type: ActionAddTag, Value: "markdown"},
			},
		},
	}
}
