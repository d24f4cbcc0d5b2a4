//go:build windows

package sources

import (
	"errors"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/windowsadmins/installcheck/pkg/logging"
)

var uninstallRoots = []struct {
	root registry.Key
	name string
	path string
}{
	// 64-bit applications
	{registry.LOCAL_MACHINE, "HKLM", `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
	// 32-bit applications on 64-bit Windows
	{registry.LOCAL_MACHINE, "HKLM", `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`},
	// Per-user applications
	{registry.CURRENT_USER, "HKCU", `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
}

type systemUninstallReader struct{}

// DefaultUninstallReader reads the machine, WOW6432Node and current-user uninstall keys.
func DefaultUninstallReader() UninstallReader {
	return systemUninstallReader{}
}

// ReadUninstallEntries fails only when no root could be opened.
func (systemUninstallReader) ReadUninstallEntries() ([]UninstallEntry, error) {
	var entries []UninstallEntry
	var errs []error
	opened := 0

	for _, root := range uninstallRoots {
		func() {
			key, err := registry.OpenKey(root.root, root.path, registry.ENUMERATE_SUB_KEYS|registry.READ)
			if err != nil {
				logging.Debug("Unable to open uninstall root", "root", root.name+`\`+root.path, "error", err)
				errs = append(errs, err)
				return
			}
			defer key.Close()
			opened++

			subKeys, err := key.ReadSubKeyNames(-1)
			if err != nil {
				logging.Debug("Unable to read uninstall subkeys", "root", root.name+`\`+root.path, "error", err)
				return
			}
			for _, sub := range subKeys {
				if entry, ok := readUninstallEntry(key, sub); ok {
					entry.KeyPath = root.name + `\` + root.path + `\` + sub
					entries = append(entries, entry)
				}
			}
		}()
	}

	if opened == 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}

func readUninstallEntry(parent registry.Key, name string) (UninstallEntry, bool) {
	key, err := registry.OpenKey(parent, name, registry.QUERY_VALUE)
	if err != nil {
		return UninstallEntry{}, false
	}
	defer key.Close()

	entry := UninstallEntry{
		DisplayName:     readString(key, "DisplayName"),
		DisplayVersion:  readString(key, "DisplayVersion"),
		Publisher:       readString(key, "Publisher"),
		InstallLocation: readString(key, "InstallLocation"),
		InstallDate:     readString(key, "InstallDate"),
	}
	if v, _, err := key.GetIntegerValue("SystemComponent"); err == nil && v == 1 {
		entry.SystemComponent = true
	}
	return entry, entry.DisplayName != ""
}

func readString(key registry.Key, name string) string {
	val, _, err := key.GetStringValue(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}
