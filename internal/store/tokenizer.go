package store

import (
	"strings"
	"unicode"
)

// NGramSize is the window used for CJK substring matching.
const NGramSize = 2

// Normalize removes every whitespace rune, including the ideographic
// space (U+3000) and line breaks.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// BigramTerms returns the overlapping bigrams of the normalized input in
// order, duplicates included. Inputs of NGramSize runes or fewer come back
// as a single term, and an empty input gives nil.
func BigramTerms(s string) []string {
	runes := []rune(Normalize(s))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= NGramSize {
		return []string{string(runes)}
	}

	grams := make([]string, 0, len(runes)-NGramSize+1)
	for i := 0; i+NGramSize <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+NGramSize]))
	}
	return grams
}

// Bigrams returns the space-joined bigram form that is stored in and
// queried against the n-gram posting table.
//
// Example: "マニュアル" -> "マニ ニュ ュア アル"
func Bigrams(s string) string {
	return strings.Join(BigramTerms(s), " ")
}

// hasWordRune reports whether s carries at least one letter or digit.
// FTS5's unicode61 tokenizer drops everything else, so a gram without one
// would compile to an empty phrase.
func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
