package content

import "unicode"

// DetectLanguage guesses the language of text from the Unicode scripts it
// uses. Any kana marks the text as Japanese; otherwise the most frequent of
// Han, Hangul and Cyrillic wins, and Latin or unknown text is English.
func DetectLanguage(text string) string {
	var han, kana, hangul, cyrillic int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		}
	}

	switch {
	case kana > 0:
		return "ja"
	case han == 0 && hangul == 0 && cyrillic == 0:
		return "en"
	case han >= hangul && han >= cyrillic:
		return "zh"
	case hangul >= cyrillic:
		return "ko"
	default:
		return "ru"
	}
}
