package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"*Visual Studio Code*", "Microsoft Visual Studio Code", true},
		{"*visual studio code*", "Microsoft Visual Studio Code (User)", true},
		{"*VSCode*", "Microsoft Visual Studio Code", false},
		{"Google Chrome", "Google Chrome", true},
		{"Google Chrome", "Google Chrome Beta", false},
		{"google chrome", "Google Chrome", true},
		{"7-Zip*", "7-Zip 23.01 (x64)", true},
		{"Notepad++*", "Notepad++ (64-bit x64)", true},
		{"Python 3.1?.*", "Python 3.12.1", true},
		{"Python 3.1?.*", "Python 3.9.1", false},
		{"[ab]*", "Audacity", true},
		{"[a-c]*", "Zoom", false},
		{"*(x86)*", "Tool (x86)", true},
		{"[unclosed", "[unclosed", true},
		{"*", "", true},
		{"", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.input))
		})
	}
}

func TestMatchMultiline(t *testing.T) {
	assert.True(t, Match("*Code*", "Visual\nStudio Code"))
}

func TestHasWildcard(t *testing.T) {
	assert.True(t, HasWildcard("*Chrome*"))
	assert.True(t, HasWildcard("Python 3.1?"))
	assert.True(t, HasWildcard("[ab]"))
	assert.False(t, HasWildcard("Google Chrome"))
}
