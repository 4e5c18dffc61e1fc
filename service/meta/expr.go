package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// expandEnv replaces ${env.KEY} expressions in value with lookup(KEY).
// Expressions with invalid keys stay literal; an unterminated expression
// leaves the rest of the value untouched.
func expandEnv(value string, lookup func(string) string) string {
	if !strings.Contains(value, envPrefix) {
		return value
	}
	var b strings.Builder
	rest := value
	for {
		idx := strings.Index(rest, envPrefix)
		if idx < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:idx])
		body := rest[idx+len(envPrefix):]
		end := strings.IndexByte(body, '}')
		if end < 0 {
			b.WriteString(rest[idx:])
			return b.String()
		}
		key := body[:end]
		if !isEnvKey(key) {
			// keep the prefix and rescan what follows it
			b.WriteString(envPrefix)
			rest = body
			continue
		}
		b.WriteString(lookup(key))
		rest = body[end+1:]
	}
}

func isEnvKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}

// expandEnvExpr expands against the process environment.
func expandEnvExpr(value string) string {
	return expandEnv(value, os.Getenv)
}
