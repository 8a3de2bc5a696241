// Package content derives structured content from a raw record: language,
// keywords, URLs, file paths and user actions.
package content

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
)

// trackingParams are stripped from extracted URLs.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid", "mc_cid", "mc_eid", "igshid", "ref", "ref_src",
}

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `)\]]+`)
	unixPath       = regexp.MustCompile(`(?:~|\.{1,2})?(?:/[\w.@+-]+)+/[\w.@+-]+\.\w+`)
	windowsPath    = regexp.MustCompile(`[A-Za-z]:\\(?:[^\\/:*?"<>|\s]+\\)*[^\\/:*?"<>|\s]+`)
	bareSourceFile = regexp.MustCompile(`\b[\w.-]+\.(?:go|py|js|ts|tsx|jsx|rs|java|kt|swift|rb|php|c|h|cpp|hpp|cs|md|json|ya?ml|toml|sql|sh|html|css|txt)\b`)
	gitCommand     = regexp.MustCompile(`\bgit\s+(add|commit|push|pull|fetch|checkout|switch|merge|rebase|clone|status|diff|log|branch|stash|reset|tag)\b`)
)

// Extractor derives content from records. It only holds read-only
// configuration and is safe for concurrent use.
type Extractor struct {
	cfg config.ContentConfig
	log zerolog.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(cfg config.ContentConfig, log zerolog.Logger) *Extractor {
	return &Extractor{cfg: cfg, log: log}
}

// Extract builds the content block for raw. A panic inside one extraction
// step drops that step's result and leaves the rest of the block intact.
func (e *Extractor) Extract(raw activity.RawRecord) activity.Content {
	c := activity.Content{Text: raw.Text}

	if e.cfg.DetectLanguage && raw.Text != "" {
		e.safely(raw.ID, "language", func() { c.Language = DetectLanguage(raw.Text) })
	}
	if e.cfg.ExtractKeywords && raw.Text != "" {
		e.safely(raw.ID, "keywords", func() { c.Keywords = Keywords(raw.Text, e.cfg.MaxKeywords) })
	}
	e.safely(raw.ID, "urls", func() { c.URLs = URLs(raw) })
	e.safely(raw.ID, "files", func() { c.Files = FilePaths(raw) })
	e.safely(raw.ID, "actions", func() { c.Actions = Actions(raw) })

	return c
}

func (e *Extractor) safely(recordID, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Str("record_id", recordID).Str("step", step).Str("panic", fmt.Sprint(r)).Msg("content extraction failed")
		}
	}()
	fn()
}

// URLs returns canonical URLs from the context and from the record text,
// context URL first, without duplicates.
func URLs(raw activity.RawRecord) []string {
	var candidates []string
	if u := raw.URL(); u != "" {
		candidates = append(candidates, u)
	}
	candidates = append(candidates, urlPattern.FindAllString(raw.Text, -1)...)

	var out []string
	for _, c := range candidates {
		canon, ok := Canonicalize(strings.TrimRight(c, ".,;:!?"))
		if ok && !slices.Contains(out, canon) {
			out = append(out, canon)
		}
	}
	return out
}

// Canonicalize strips tracking query parameters. It returns false for
// strings that are not absolute URLs.
func Canonicalize(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	q := u.Query()
	changed := false
	for _, p := range trackingParams {
		if q.Has(p) {
			q.Del(p)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String(), true
}

// FilePaths returns path-like tokens from the window title and the text.
// URLs are removed from the text first so their paths are not reported.
func FilePaths(raw activity.RawRecord) []string {
	var out []string
	add := func(matches []string) {
		for _, m := range matches {
			m = strings.TrimRight(m, ".,;:")
			if m != "" && !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}

	for _, src := range []string{raw.WindowTitle(), urlPattern.ReplaceAllString(raw.Text, " ")} {
		if src == "" {
			continue
		}
		full := append(unixPath.FindAllString(src, -1), windowsPath.FindAllString(src, -1)...)
		add(full)

		for _, bare := range bareSourceFile.FindAllString(src, -1) {
			if !containsSuffix(out, bare) {
				add([]string{bare})
			}
		}
	}
	return out
}

func containsSuffix(paths []string, name string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, "/"+name) || strings.HasSuffix(p, `\`+name) || p == name {
			return true
		}
	}
	return false
}

// Actions describes what the user did: mouse actions, key combinations and
// a few application specific commands found in text.
func Actions(raw activity.RawRecord) []string {
	var out []string
	add := func(a string) {
		if a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}

	switch raw.Type {
	case activity.RecordMouse:
		action := lowerString(raw.Data["action"])
		button := lowerString(raw.Data["button"])
		switch {
		case action != "" && button != "":
			add(action + ":" + button)
		case action != "":
			add(action)
		case button != "":
			add("click:" + button)
		}
	case activity.RecordKeyboard:
		if combo := keyCombo(raw.Data); combo != "" {
			add(combo)
			add(shortcutNames[combo])
		}
	}

	for _, m := range gitCommand.FindAllStringSubmatch(raw.Text, -1) {
		add("git:" + m[1])
	}

	return out
}

var shortcutNames = map[string]string{
	"ctrl+c": "copy", "cmd+c": "copy",
	"ctrl+v": "paste", "cmd+v": "paste",
	"ctrl+x": "cut", "cmd+x": "cut",
	"ctrl+s": "save", "cmd+s": "save",
	"ctrl+z": "undo", "cmd+z": "undo",
	"ctrl+f": "find", "cmd+f": "find",
}

var modifierOrder = []string{"ctrl", "cmd", "alt", "shift"}

// keyCombo renders modifier+key combinations such as "ctrl+shift+p". Plain
// keys without modifiers are not actions.
func keyCombo(data map[string]any) string {
	key := lowerString(data["key"])
	mods, _ := data["modifiers"].([]any)
	if key == "" || len(mods) == 0 {
		return ""
	}

	present := make(map[string]bool, len(mods))
	for _, m := range mods {
		name := lowerString(m)
		switch name {
		case "control":
			name = "ctrl"
		case "meta", "command", "super", "win":
			name = "cmd"
		case "option":
			name = "alt"
		}
		present[name] = true
	}

	var parts []string
	for _, m := range modifierOrder {
		if present[m] {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(append(parts, key), "+")
}

func lowerString(v any) string {
	s, _ := v.(string)
	return strings.ToLower(strings.TrimSpace(s))
}
