// Package chunker splits oversized text into token bounded chunks along
// semantic boundaries.
package chunker

import (
	"strings"

	"github.com/juicer-platform/cortex/service/tokenizer"
)

// Splitter divides text into ordered chunks of at most maxTokens tokens.
type Splitter interface {
	Split(text string, maxTokens int) []string
}

// separators are tried from the coarsest to the finest boundary.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", " "}

// Semantic splits on paragraph, line, sentence and word boundaries before
// falling back to hard token cuts, then greedily packs pieces into chunks.
type Semantic struct {
	tokenizer tokenizer.Tokenizer
}

type piece struct {
	text   string
	tokens int
}

// New creates a semantic splitter.
func New(t tokenizer.Tokenizer) *Semantic {
	return &Semantic{tokenizer: t}
}

// Split implements Splitter. Chunks are trimmed and never empty.
func (s *Semantic) Split(text string, maxTokens int) []string {
	if maxTokens <= 0 || s.tokenizer.Count(text) <= maxTokens {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	pieces := s.divide(text, maxTokens, 0)
	return s.merge(pieces, maxTokens)
}

func (s *Semantic) divide(text string, maxTokens int, level int) []piece {
	count := s.tokenizer.Count(text)
	if count <= maxTokens {
		return []piece{{text: text, tokens: count}}
	}
	if level >= len(separators) {
		return s.cut(text, maxTokens)
	}
	parts := splitAfter(text, separators[level])
	if len(parts) == 1 {
		return s.divide(text, maxTokens, level+1)
	}
	var ret []piece
	for _, part := range parts {
		ret = append(ret, s.divide(part, maxTokens, level+1)...)
	}
	return ret
}

// cut slices text into consecutive maxTokens sized prefixes.
func (s *Semantic) cut(text string, maxTokens int) []piece {
	var ret []piece
	for s.tokenizer.Count(text) > maxTokens {
		head := s.tokenizer.First(text, maxTokens)
		if head == "" {
			break
		}
		ret = append(ret, piece{text: head, tokens: maxTokens})
		text = text[len(head):]
	}
	if text != "" {
		ret = append(ret, piece{text: text, tokens: s.tokenizer.Count(text)})
	}
	return ret
}

func (s *Semantic) merge(pieces []piece, maxTokens int) []string {
	var chunks []string
	var current strings.Builder
	tokens := 0
	flush := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current.Reset()
		tokens = 0
	}
	for _, p := range pieces {
		if tokens > 0 && tokens+p.tokens > maxTokens {
			flush()
		}
		current.WriteString(p.text)
		tokens += p.tokens
	}
	flush()
	return chunks
}

// splitAfter splits text keeping each separator attached to the preceding part.
func splitAfter(text, separator string) []string {
	parts := strings.SplitAfter(text, separator)
	ret := parts[:0]
	for _, part := range parts {
		if part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}
