package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		contains []string
		excludes []string
	}{
		{
			name:     "word split and whole pattern",
			patterns: []string{"*Visual Studio Code*", "*VSCode*"},
			contains: []string{"Visual", "Studio", "Code", "VSCode", "Visual Studio Code"},
		},
		{
			name:     "camel case with uppercase run",
			patterns: []string{"*AngryIPScanner*"},
			contains: []string{"Angry", "Scanner", "AngryIPScanner"},
			excludes: []string{"IP"},
		},
		{
			name:     "short camel pieces dropped",
			patterns: []string{"*VSCode*"},
			contains: []string{"VSCode", "Code"},
			excludes: []string{"VS"},
		},
		{
			name:     "stop words numbers and short words dropped",
			patterns: []string{"*Notepad++ 8 for the App*"},
			contains: []string{"Notepad++"},
			excludes: []string{"8", "for", "the", "App"},
		},
		{
			name:     "separators",
			patterns: []string{"7-Zip_File.Manager"},
			contains: []string{"Zip", "File", "Manager", "Zip File Manager"},
			excludes: []string{"7"},
		},
		{
			name:     "fallback to cleaned phrase",
			patterns: []string{"*VLC*"},
			contains: []string{"VLC"},
		},
		{
			name:     "letter digit boundary",
			patterns: []string{"*Python3Launcher*"},
			contains: []string{"Python3Launcher", "Python", "Launcher"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.patterns)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestExtractNoDuplicates(t *testing.T) {
	got := Extract([]string{"*Visual Studio Code*", "*Visual Studio Code*", "*VSCode*"})
	seen := map[string]bool{}
	for _, tok := range got {
		assert.False(t, seen[tok], "duplicate token %q", tok)
		seen[tok] = true
	}
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, Extract(nil))
	assert.Empty(t, Extract([]string{"", "*", "**?"}))
}

func TestExtractNeverZeroForNonEmptyPattern(t *testing.T) {
	// Every word is filtered, so the cleaned phrase is kept.
	got := Extract([]string{"*The App*"})
	assert.Equal(t, []string{"The App"}, got)
}

func TestSplitCamel(t *testing.T) {
	assert.Equal(t, []string{"Angry", "IP", "Scanner"}, splitCamel("AngryIPScanner"))
	assert.Equal(t, []string{"VS", "Code"}, splitCamel("VSCode"))
	assert.Equal(t, []string{"Firefox"}, splitCamel("Firefox"))
	assert.Equal(t, []string{"HTML", "5"}, splitCamel("HTML5"))
}
