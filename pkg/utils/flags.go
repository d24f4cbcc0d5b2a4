//go:build windows

package utils

import (
	"os"
	"slices"
	"unsafe"

	"golang.org/x/sys/windows"
)

// PatchWindowsArgs replaces os.Args with the command line as Windows itself
// splits it, so quoted catalog and output paths with spaces survive intact.
// It reports whether os.Args changed. Call it before pflag.Parse.
func PatchWindowsArgs() bool {
	args, ok := commandLineArgs()
	if !ok || slices.Equal(args, os.Args) {
		return false
	}
	os.Args = args
	return true
}

func commandLineArgs() ([]string, bool) {
	line := windows.GetCommandLine()
	if line == nil {
		return nil, false
	}
	var argc int32
	argv, err := windows.CommandLineToArgv(line, &argc)
	if err != nil || argv == nil || argc < 1 {
		return nil, false
	}
	defer windows.LocalFree(windows.Handle(uintptr(unsafe.Pointer(argv))))

	args := make([]string, 0, argc)
	for _, p := range unsafe.Slice((**uint16)(unsafe.Pointer(argv)), argc) {
		if p != nil {
			args = append(args, windows.UTF16PtrToString(p))
		}
	}
	return args, len(args) > 0
}
