//go:build !windows

package utils

import (
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatchWindowsArgsNoop(t *testing.T) {
	before := slices.Clone(os.Args)
	assert.False(t, PatchWindowsArgs())
	assert.Equal(t, before, os.Args)
}
