package content

import (
	"regexp"
	"slices"
	"strings"
)

var (
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	declaration = regexp.MustCompile(`\b(?:function|func|class|interface|struct|def|type|enum)\s+([A-Za-z_]\w*)`)
	callExpr    = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)
	camelCase   = regexp.MustCompile(`\b(?:[A-Z][a-z0-9]+){2,}\b|\b[a-z]+(?:[A-Z][a-z0-9]+)+\b`)
	allCaps     = regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}\b`)
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the and for are but not you all any can had her was one our out day get has him his how
		man new now old see two way who boy did its let put say she too use that with have this
		will your from they know want been good much some time very when come here just like long
		make many more only over such take than them well were what where which while would there
		their then these those into about after again also because before being between both could
		does doing down during each few further having itself most other same should through under
		until what's just been yours ours myself yourself`) {
		stopWords[w] = struct{}{}
	}
}

// Keywords returns up to limit keywords: frequent non stop-word tokens first,
// then technical terms such as declared names, called functions, CamelCase
// and ALL_CAPS identifiers. Duplicates are removed case-insensitively.
func Keywords(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	type counted struct {
		word  string
		count int
		first int
	}

	counts := map[string]*counted{}
	for i, tok := range wordPattern.FindAllString(text, -1) {
		w := strings.ToLower(tok)
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if c, ok := counts[w]; ok {
			c.count++
			continue
		}
		counts[w] = &counted{word: w, count: 1, first: i}
	}

	ranked := make([]*counted, 0, len(counts))
	for _, c := range counts {
		ranked = append(ranked, c)
	}
	slices.SortFunc(ranked, func(a, b *counted) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return a.first - b.first
	})

	var (
		out  []string
		seen = map[string]struct{}{}
	)
	add := func(w string) {
		key := strings.ToLower(w)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}

	for _, c := range ranked {
		add(c.word)
	}
	for _, term := range technicalTerms(text) {
		add(term)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func technicalTerms(text string) []string {
	var terms []string
	for _, m := range declaration.FindAllStringSubmatch(text, -1) {
		terms = append(terms, m[1])
	}
	for _, m := range callExpr.FindAllStringSubmatch(text, -1) {
		terms = append(terms, m[1])
	}
	terms = append(terms, camelCase.FindAllString(text, -1)...)
	terms = append(terms, allCaps.FindAllString(text, -1)...)
	return terms
}
