// Package names turns human-authored wildcard patterns into match tokens and
// evaluates PowerShell-style wildcard patterns against display names.
package names

import (
	"strings"
	"unicode"

	"github.com/windowsadmins/installcheck/pkg/logging"
)

// stopWords are dropped from extracted tokens (compared lowercase).
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {},
	"of": {}, "in": {}, "on": {}, "to": {}, "by": {}, "at": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"exe": {}, "app": {}, "application": {}, "software": {}, "program": {}, "tool": {}, "utility": {},
}

var wildcardStripper = strings.NewReplacer("*", " ", "?", " ", "[", " ", "]", " ")

// Extract derives a deduplicated, order-preserving list of candidate tokens
// from wildcard search patterns. It never panics; on an internal failure it
// returns nil, which callers treat as "no inventory fallback possible".
func Extract(patterns []string) (tokens []string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("Token extraction failed", "patterns", patterns, "panic", r)
			tokens = nil
		}
	}()

	seen := make(map[string]struct{})
	add := func(tok string) {
		if tok == "" {
			return
		}
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	for _, pattern := range patterns {
		cleaned := strings.Join(strings.Fields(wildcardStripper.Replace(pattern)), " ")
		if cleaned == "" {
			continue
		}

		words := splitWords(cleaned)
		var kept []string
		for _, w := range words {
			if len(w) > 2 && !isNumeric(w) && !isStopWord(w) {
				kept = append(kept, w)
			}
		}
		for _, w := range kept {
			add(w)
		}
		switch {
		case len(kept) > 1:
			add(strings.Join(kept, " "))
		case len(kept) == 0:
			add(cleaned)
		}

		for _, w := range words {
			pieces := splitCamel(w)
			if len(pieces) < 2 {
				continue
			}
			for _, p := range pieces {
				if len(p) > 2 && !isNumeric(p) && !isStopWord(p) {
					add(p)
				}
			}
		}
	}
	return tokens
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})
}

// splitCamel breaks a word before an uppercase letter that follows a
// lowercase letter ("aB"), before the last capital of an uppercase run that
// starts a capitalized word ("IPScanner" -> "IP", "Scanner"), and at
// letter/digit transitions.
func splitCamel(word string) []string {
	runes := []rune(word)
	var pieces []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		case unicode.IsLetter(prev) && unicode.IsDigit(cur), unicode.IsDigit(prev) && unicode.IsLetter(cur):
			boundary = true
		}
		if boundary {
			pieces = append(pieces, string(runes[start:i]))
			start = i
		}
	}
	return append(pieces, string(runes[start:]))
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func isStopWord(s string) bool {
	_, ok := stopWords[strings.ToLower(s)]
	return ok
}
