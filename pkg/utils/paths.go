// pkg/utils/paths.go - utility functions for working with file paths.

package utils

import (
	"os"
	"strings"
)

// NormalizeWindowsPath converts forward slashes to backslashes and collapses
// repeated backslashes. A leading UNC prefix is kept.
func NormalizeWindowsPath(path string) string {
	normalized := strings.ReplaceAll(path, "/", `\`)

	prefix := ""
	if strings.HasPrefix(normalized, `\\`) {
		prefix, normalized = `\\`, strings.TrimLeft(normalized, `\`)
	}
	for strings.Contains(normalized, `\\`) {
		normalized = strings.ReplaceAll(normalized, `\\`, `\`)
	}
	return prefix + normalized
}

// ExpandWindowsEnv replaces %NAME% references with environment values, looked
// up case-insensitively as Windows does. Unset variables are left in place.
func ExpandWindowsEnv(s string) string {
	return expandWindowsEnv(s, lookupEnvFold)
}

func expandWindowsEnv(s string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			break
		}
		end += start + 1
		name := s[start+1 : end]
		if val, ok := lookup(name); ok && name != "" {
			b.WriteString(s[:start])
			b.WriteString(val)
		} else {
			b.WriteString(s[:end])
			// The closing % may open the next reference.
			s = s[end:]
			continue
		}
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}

func lookupEnvFold(name string) (string, bool) {
	if val, ok := os.LookupEnv(name); ok {
		return val, val != ""
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.EqualFold(k, name) {
			return v, v != ""
		}
	}
	return "", false
}
