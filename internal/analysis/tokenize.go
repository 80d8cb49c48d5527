package analysis

import (
	"cmp"
	"slices"
	"unicode/utf8"

	"github.com/atri1011/datafx/internal/constants"
	"github.com/atri1011/datafx/internal/domain"
)

// Tokenize splits text into runs of CJK unified ideographs (U+4E00..U+9FA5),
// ASCII letters and ASCII digits. Every other rune is a separator.
func Tokenize(text string) []string {
	var tokens []string
	start := -1

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
	}

	return tokens
}

func isWordRune(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FA5:
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return false
	}
}

// TopWords counts tokens of textField across items and returns the limit most
// frequent. Single-rune tokens are dropped. Ties keep first-appearance order.
// limit <= 0 falls back to the default of 50.
func TopWords(items []domain.DerivedItem, textField string, limit int) []domain.WordFrequencyEntry {
	if limit <= 0 {
		limit = constants.AnalysisConfig.TopWordsLimit
	}

	entries := make([]domain.WordFrequencyEntry, 0)
	index := make(map[string]int)

	for _, item := range items {
		text, _ := item.Attribute(textField)
		for _, token := range Tokenize(text) {
			if utf8.RuneCountInString(token) <= 1 {
				continue
			}
			if pos, ok := index[token]; ok {
				entries[pos].Count++
				continue
			}
			index[token] = len(entries)
			entries = append(entries, domain.WordFrequencyEntry{Token: token, Count: 1})
		}
	}

	slices.SortStableFunc(entries, func(a, b domain.WordFrequencyEntry) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
