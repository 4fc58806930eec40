package generator

import (
	"strings"
	"unicode"
)

// Tokenize splits text on anything that is not a letter or digit and
// lowercases the pieces.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// HasContent reports whether text yields at least one token outside
// stopwords. A nil set counts every token.
func HasContent(text string, stopwords map[string]struct{}) bool {
	for _, tok := range Tokenize(text) {
		if _, stop := stopwords[tok]; !stop {
			return true
		}
	}
	return false
}
