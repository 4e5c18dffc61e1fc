// Package tokenizer counts and slices text in backend tokens.
package tokenizer

import (
	"regexp"
)

// Tokenizer measures and truncates text in tokens.
type Tokenizer interface {
	// Count returns the number of tokens in text.
	Count(text string) int
	// First returns the longest prefix of text holding at most n tokens.
	First(text string, n int) string
	// Last returns the longest suffix of text holding at most n tokens.
	Last(text string, n int) string
}

var wordExpr = regexp.MustCompile(`\S+`)

// Words approximates backend tokens with whitespace separated words. Slices
// returned by First and Last are substrings of the input so that original
// spacing is preserved.
type Words struct{}

// New returns the default word tokenizer.
func New() *Words {
	return &Words{}
}

// Count returns the number of words.
func (w *Words) Count(text string) int {
	return len(wordExpr.FindAllStringIndex(text, -1))
}

// First returns text up to the end of the n-th word.
func (w *Words) First(text string, n int) string {
	if n <= 0 {
		return ""
	}
	locations := wordExpr.FindAllStringIndex(text, n)
	if len(locations) < n {
		return text
	}
	return text[:locations[n-1][1]]
}

// Last returns text from the start of the n-th word counted from the end.
func (w *Words) Last(text string, n int) string {
	if n <= 0 {
		return ""
	}
	locations := wordExpr.FindAllStringIndex(text, -1)
	if len(locations) <= n {
		return text
	}
	return text[locations[len(locations)-n][0]:]
}
