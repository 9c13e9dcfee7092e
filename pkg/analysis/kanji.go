package analysis

import "unicode"

// KanjiMatcher decides whether a rune counts as kanji.
type KanjiMatcher func(r rune) bool

// Kanji matcher names.
const (
	KanjiScript = "script"
	KanjiBlock  = "block"
)

// IsHan matches the Unicode Han script, including marks such as 々.
func IsHan(r rune) bool { return unicode.Is(unicode.Han, r) }

// IsUnifiedIdeograph matches only the CJK Unified Ideographs block (U+4E00..U+9FFF).
func IsUnifiedIdeograph(r rune) bool { return r >= 0x4E00 && r <= 0x9FFF }

// ParseKanjiMatcher resolves a matcher name; "" selects the script matcher.
func ParseKanjiMatcher(name string) (KanjiMatcher, error) {
	switch name {
	case "", KanjiScript:
		return IsHan, nil
	case KanjiBlock:
		return IsUnifiedIdeograph, nil
	default:
		return nil, &ConfigurationError{Field: "kanji matcher", Value: name, Message: "want script or block"}
	}
}

// ExtractKanji returns the distinct kanji of text in order of first appearance.
// A nil matcher means IsHan.
func ExtractKanji(text string, match KanjiMatcher) []string {
	if match == nil {
		match = IsHan
	}
	seen := make(map[rune]bool)
	out := []string{}
	for _, r := range text {
		if !match(r) || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, string(r))
	}
	return out
}
