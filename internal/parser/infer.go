package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/categorize"
)

// longText is the rune count from which keyboard text is inspected for code
// or document shapes. Shorter text is plain typing.
const longText = 12

var (
	codeShape = regexp.MustCompile(
		`\b(function|func|def|class|interface|import|package|return|const|let|var|struct|enum|impl|fn)\b` +
			`|=>|:=|\w+\([^()]*\)\s*\{|[{};]\s*$|^\s*(#include|@\w+)`)
	docShape = regexp.MustCompile(`(?m)^#{1,6}\s+\S|^\s*([-*]|\d+\.)\s+\S|\*\*[^*]+\*\*|\[[^\]]+\]\([^)]+\)`)

	browserApps = []string{
		"chrome", "chromium", "firefox", "safari", "edge", "brave", "opera", "vivaldi",
	}
	chatApps = []string{
		"slack", "teams", "discord", "zoom", "skype", "telegram", "whatsapp", "wechat",
		"signal", "outlook", "*mail", "thunderbird", "messages", "lark", "feishu", "dingtalk",
	}
)

// inferType derives the baseline activity type from the record kind and
// payload shape. Rules may override it later.
func inferType(raw activity.RawRecord) activity.Type {
	switch raw.Type {
	case activity.RecordKeyboard:
		return inferKeyboard(raw)
	case activity.RecordMouse:
		return inferMouse(raw)
	case activity.RecordWindow, activity.RecordApplication:
		return inferWindow(raw)
	default:
		return activity.TypeIdle
	}
}

func inferKeyboard(raw activity.RawRecord) activity.Type {
	if hasAny(raw.Application(), chatApps) {
		return activity.TypeCommunicating
	}

	text := strings.TrimSpace(raw.Text)
	if utf8.RuneCountInString(text) < longText {
		return activity.TypeTyping
	}

	switch {
	case codeShape.MatchString(text):
		return activity.TypeCoding
	case docShape.MatchString(text):
		return activity.TypeDocumenting
	default:
		return activity.TypeTyping
	}
}

func inferMouse(raw activity.RawRecord) activity.Type {
	action, _ := raw.Data["action"].(string)
	action = strings.ToLower(action)

	switch {
	case strings.Contains(action, "scroll") || raw.Data["delta_y"] != nil || raw.Data["delta_x"] != nil:
		return activity.TypeScrolling
	case strings.Contains(action, "click"), strings.Contains(action, "press"), strings.Contains(action, "release"):
		return activity.TypeClicking
	case action == "" && raw.Data["button"] != nil:
		return activity.TypeClicking
	default:
		return activity.TypeReading
	}
}

func inferWindow(raw activity.RawRecord) activity.Type {
	app := raw.Application()
	switch {
	case hasAny(app, chatApps):
		return activity.TypeCommunicating
	case raw.URL() != "", hasAny(app, browserApps):
		return activity.TypeBrowsing
	default:
		return activity.TypeReading
	}
}

func hasAny(app string, names []string) bool {
	return categorize.MatchApp(app, names)
}
