// Package sources implements the evidence sources consulted by the detection
// pipeline: uninstall registry keys, Windows Store packages, portable
// installs on disk, and the software inventory snapshot.
package sources

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/names"
	"github.com/windowsadmins/installcheck/pkg/utils"
)

// UninstallEntry is the raw content of one uninstall subkey.
type UninstallEntry struct {
	KeyPath         string
	DisplayName     string
	DisplayVersion  string
	Publisher       string
	InstallLocation string
	InstallDate     string
	SystemComponent bool
}

// UninstallReader enumerates every uninstall subkey under the known roots.
type UninstallReader interface {
	ReadUninstallEntries() ([]UninstallEntry, error)
}

// UninstallReaderFunc adapts a function to UninstallReader.
type UninstallReaderFunc func() ([]UninstallEntry, error)

// ReadUninstallEntries calls f.
func (f UninstallReaderFunc) ReadUninstallEntries() ([]UninstallEntry, error) { return f() }

// excludedNames filters OS patches and runtime redistributables out of results.
var excludedNames = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bKB\d{6,7}\b`),
	regexp.MustCompile(`(?i)^(security )?update for\b`),
	regexp.MustCompile(`(?i)^hotfix for\b`),
	regexp.MustCompile(`(?i)\.NET Framework`),
	regexp.MustCompile(`(?i)Visual C\+\+ .*Redistributable`),
}

// IsExcludedName reports whether a display name is patch or runtime noise.
func IsExcludedName(name string) bool {
	for _, re := range excludedNames {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Registry matches uninstall keys by display name. The keys are enumerated
// once per Registry value and reused for every pattern; a failed enumeration
// is retried on the next scan.
type Registry struct {
	reader UninstallReader

	mu      sync.Mutex
	entries []UninstallEntry
	loaded  bool
}

// NewRegistry returns a registry source reading through reader.
func NewRegistry(reader UninstallReader) *Registry {
	return &Registry{reader: reader}
}

// Kind implements detect.Source.
func (r *Registry) Kind() detect.SourceKind { return detect.SourceRegistry }

// Scan returns the deduplicated records whose display name matches q.Pattern.
func (r *Registry) Scan(ctx context.Context, q detect.Query) (records []detect.InstallationRecord) {
	defer recoverScan("registry", q.Pattern, &records)

	entries, err := r.load()
	if err != nil {
		logging.Debug("Registry scan failed", "pattern", q.Pattern, "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		name := strings.TrimSpace(e.DisplayName)
		if name == "" || e.SystemComponent || IsExcludedName(name) {
			continue
		}
		if !names.Match(q.Pattern, name) {
			continue
		}
		rec := detect.InstallationRecord{
			DisplayName:     name,
			Version:         detect.OrUnknown(e.DisplayVersion),
			Publisher:       detect.OrUnknown(e.Publisher),
			InstallLocation: detect.Optional(installLocation(e.InstallLocation)),
			InstallDate:     detect.Optional(e.InstallDate),
			SourceKind:      detect.SourceRegistry,
		}
		key := rec.DisplayName + "|" + rec.Version
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		logging.Debug("Uninstall entry matched", "pattern", q.Pattern, "name", name, "key", e.KeyPath)
		records = append(records, rec)
	}
	return records
}

// installLocation strips the quotes some installers write around the path.
func installLocation(raw string) string {
	trimmed := strings.Trim(raw, `" `)
	if trimmed == "" {
		return ""
	}
	return utils.NormalizeWindowsPath(trimmed)
}

func (r *Registry) load() ([]UninstallEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.entries, nil
	}
	entries, err := r.reader.ReadUninstallEntries()
	if err != nil {
		return nil, err
	}
	r.entries, r.loaded = entries, true
	logging.Debug("Uninstall keys enumerated", "count", len(entries))
	return entries, nil
}

// recoverScan turns a panic inside a scan into an empty result.
func recoverScan(source, input string, records *[]detect.InstallationRecord) {
	if rec := recover(); rec != nil {
		logging.Debug("Source scan panicked", "source", source, "input", input, "panic", rec)
		*records = nil
	}
}
