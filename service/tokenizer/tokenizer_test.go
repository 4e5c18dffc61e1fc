package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	var testCases = []struct {
		description string
		text        string
		n           int
		count       int
		first       string
		last        string
	}{
		{description: "empty", text: "", n: 2, count: 0, first: "", last: ""},
		{description: "shorter than n", text: "one two", n: 5, count: 2, first: "one two", last: "one two"},
		{description: "truncate", text: "one two  three\nfour", n: 2, count: 4, first: "one two", last: "three\nfour"},
		{description: "zero", text: "one two", n: 0, count: 2, first: "", last: ""},
	}
	tokenizer := New()
	for _, testCase := range testCases {
		assert.Equal(t, testCase.count, tokenizer.Count(testCase.text), testCase.description)
		assert.Equal(t, testCase.first, tokenizer.First(testCase.text, testCase.n), testCase.description)
		assert.Equal(t, testCase.last, tokenizer.Last(testCase.text, testCase.n), testCase.description)
	}
}

func TestWords_Idempotent(t *testing.T) {
	tokenizer := New()
	text := "alpha beta gamma delta epsilon"
	first := tokenizer.First(text, 3)
	assert.Equal(t, 3, tokenizer.Count(first))
	assert.Equal(t, first, tokenizer.First(first, 3))
	last := tokenizer.Last(text, 3)
	assert.Equal(t, "gamma delta epsilon", last)
	assert.Equal(t, last, tokenizer.Last(last, 3))
}
