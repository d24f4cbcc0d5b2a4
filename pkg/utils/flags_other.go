//go:build !windows

package utils

// PatchWindowsArgs is a no-op off Windows, where os.Args is already exact.
func PatchWindowsArgs() bool { return false }
