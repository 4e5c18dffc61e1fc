package model

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes start at 1 to avoid a clash with parsly.EOF.
const (
	whitespaceCode = iota + 1
	rawOpenCode
	exprOpenCode
	tagOpenCode
	rawCloseCode
	exprCloseCode
	tagCloseCode
	identifierCode
	stringCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	rawOpenToken    = parsly.NewToken(rawOpenCode, "{{{", matcher.NewFragment("{{{"))
	exprOpenToken   = parsly.NewToken(exprOpenCode, "{{", matcher.NewFragment("{{"))
	tagOpenToken    = parsly.NewToken(tagOpenCode, "{%", matcher.NewFragment("{%"))
	rawCloseToken   = parsly.NewToken(rawCloseCode, "}}}", matcher.NewFragment("}}}"))
	exprCloseToken  = parsly.NewToken(exprCloseCode, "}}", matcher.NewFragment("}}"))
	tagCloseToken   = parsly.NewToken(tagCloseCode, "%}", matcher.NewFragment("%}"))
	identifierToken = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
	stringToken     = parsly.NewToken(stringCode, "String", &quotedMatcher{})
)

// template keywords that look like identifiers but never name a parameter
var keywords = map[string]bool{
	"if": true, "else": true, "elif": true, "endif": true, "for": true, "endfor": true,
	"in": true, "and": true, "or": true, "not": true, "true": true, "false": true,
	"none": true, "set": true, "with": true, "endwith": true, "autoescape": true,
	"endautoescape": true, "on": true, "off": true,
}

// identifierMatcher matches dotted identifiers such as chat.history[0]
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < cursor.InputSize; i++ {
		c := input[i]
		if isLetter(c) || isDigit(c) || c == '_' || c == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// quotedMatcher matches single or double quoted literals
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	quote := input[pos]
	if quote != '"' && quote != '\'' {
		return 0
	}
	for i := pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i - pos + 1
		}
	}
	return 0
}

// Placeholders returns the distinct root parameter names referenced by
// template expressions ({{x}}, {{{x}}}) and tags ({% if x %}), in order of
// first appearance. Filters and string literals are ignored.
func Placeholders(template string) []string {
	cursor := parsly.NewCursor("", []byte(template), 0)
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if keywords[name] || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for cursor.HasMore() {
		match := cursor.MatchAny(rawOpenToken, exprOpenToken, tagOpenToken)
		var closing *parsly.Token
		switch match.Code {
		case rawOpenCode:
			closing = rawCloseToken
		case exprOpenCode:
			closing = exprCloseToken
		case tagOpenCode:
			closing = tagCloseToken
		default:
			cursor.Pos++
			continue
		}
		scanTag(cursor, closing, add)
	}
	return names
}

// scanTag consumes a tag body up to closing, reporting referenced names.
func scanTag(cursor *parsly.Cursor, closing *parsly.Token, add func(string)) {
	afterPipe := false
	first := true
	for cursor.HasMore() {
		match := cursor.MatchAfterOptional(whitespaceToken, closing, stringToken, identifierToken)
		switch match.Code {
		case closing.Code:
			return
		case stringCode:
			first = false
		case identifierCode:
			text := match.Text(cursor)
			isTagName := first && closing.Code == tagCloseCode
			first = false
			if afterPipe {
				afterPipe = false
				continue
			}
			if isTagName {
				continue
			}
			add(rootOf(text))
		case parsly.EOF:
			return
		default:
			if cursor.Pos < cursor.InputSize && cursor.Input[cursor.Pos] == '|' {
				afterPipe = true
			}
			first = false
			cursor.Pos++
		}
	}
}

func rootOf(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
