package names

import (
	"regexp"
	"strings"
	"sync"
)

var compiled sync.Map // pattern -> *regexp.Regexp (nil for invalid patterns)

// Match reports whether s matches the wildcard pattern, case-insensitively.
// Supported syntax follows PowerShell's -like: '*' for any run of characters,
// '?' for exactly one character and '[...]' for a character set or range.
func Match(pattern, s string) bool {
	if !HasWildcard(pattern) {
		return strings.EqualFold(pattern, s)
	}
	re := compile(pattern)
	return re != nil && re.MatchString(s)
}

// HasWildcard reports whether pattern contains wildcard syntax.
func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func compile(pattern string) *regexp.Regexp {
	if v, ok := compiled.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		re = nil
	}
	compiled.Store(pattern, re)
	return re
}

func translate(pattern string) string {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == ']' {
					end = j
					break
				}
			}
			if end <= i+1 {
				// Unclosed or empty set is literal.
				b.WriteString(regexp.QuoteMeta(string(r)))
				continue
			}
			b.WriteByte('[')
			for _, c := range runes[i+1 : end] {
				if c == '\\' || c == '^' || c == '[' {
					b.WriteByte('\\')
				}
				b.WriteRune(c)
			}
			b.WriteByte(']')
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return b.String()
}
