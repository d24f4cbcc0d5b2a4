//go:build !windows

package sources

import "errors"

// DefaultUninstallReader has no registry to read off Windows.
func DefaultUninstallReader() UninstallReader {
	return UninstallReaderFunc(func() ([]UninstallEntry, error) {
		return nil, errors.New("uninstall registry is only available on Windows")
	})
}
