// Package detect reconciles installation evidence from several sources into
// one normalized status per application.
package detect

import (
	"fmt"
	"strings"
)

// Unknown is the value reported for a descriptive field of an installed
// application that its source could not determine.
const Unknown = "Unknown"

// SourceKind identifies the evidence source that produced a record.
type SourceKind int

const (
	SourceRegistry SourceKind = iota + 1
	SourceWindowsStore
	SourcePortable
	SourceInventory
)

var sourceNames = map[SourceKind]string{
	SourceRegistry:     "Registry",
	SourceWindowsStore: "WindowsStore",
	SourcePortable:     "Portable",
	SourceInventory:    "Inventory",
}

// String returns the display name of the kind.
func (k SourceKind) String() string {
	if name, ok := sourceNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// Valid reports whether k is one of the defined kinds.
func (k SourceKind) Valid() bool {
	_, ok := sourceNames[k]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (k SourceKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid source kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseSourceKind parses a kind name case-insensitively.
func ParseSourceKind(s string) (SourceKind, error) {
	for kind, name := range sourceNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown source kind %q", s)
}

// ApplicationDescriptor identifies one application to detect.
// SearchPatterns are ordered; earlier patterns are preferred matches.
type ApplicationDescriptor struct {
	ID                    string   `yaml:"id" json:"id"`
	SearchPatterns        []string `yaml:"search_patterns" json:"search_patterns"`
	CommonInstallSubpaths []string `yaml:"common_install_subpaths,omitempty" json:"common_install_subpaths,omitempty"`
	ExecutableNames       []string `yaml:"executable_names,omitempty" json:"executable_names,omitempty"`

	// Used by callers only; detection ignores them.
	ProcessNames  []string `yaml:"process_names,omitempty" json:"process_names,omitempty"`
	LatestVersion string   `yaml:"latest_version,omitempty" json:"latest_version,omitempty"`
}

// HasHints reports whether the descriptor carries any portable-scan hint.
func (a ApplicationDescriptor) HasHints() bool {
	return len(a.CommonInstallSubpaths) > 0 || len(a.ExecutableNames) > 0
}

// Searchable reports whether any source could possibly find the application.
func (a ApplicationDescriptor) Searchable() bool {
	for _, p := range a.SearchPatterns {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return a.HasHints()
}

// InstallationRecord is one raw hit from a single evidence source.
type InstallationRecord struct {
	DisplayName     string
	Version         string
	Publisher       string
	InstallLocation *string
	InstallDate     *string
	SourceKind      SourceKind
}

// InstallationStatus is the normalized verdict for one application.
// When IsInstalled is false every descriptive field and Source are nil.
type InstallationStatus struct {
	IsInstalled     bool        `json:"is_installed" yaml:"is_installed"`
	DisplayName     *string     `json:"display_name" yaml:"display_name"`
	Version         *string     `json:"version" yaml:"version"`
	Publisher       *string     `json:"publisher" yaml:"publisher"`
	InstallLocation *string     `json:"install_location" yaml:"install_location"`
	InstallDate     *string     `json:"install_date" yaml:"install_date"`
	Source          *SourceKind `json:"source" yaml:"source"`
	Error           *string     `json:"error" yaml:"error"`
}

// NotInstalled returns the status for an application without evidence.
func NotInstalled() InstallationStatus {
	return InstallationStatus{}
}

// Failed returns the status for a detection that could not complete.
func Failed(err error) InstallationStatus {
	msg := err.Error()
	return InstallationStatus{Error: &msg}
}

// Installed maps a record to a normalized status. DisplayName, Version and
// Publisher fall back to Unknown; empty location and date become nil.
func Installed(rec InstallationRecord, fallback SourceKind) InstallationStatus {
	kind := rec.SourceKind
	if !kind.Valid() {
		kind = fallback
	}
	return InstallationStatus{
		IsInstalled:     true,
		DisplayName:     strPtr(OrUnknown(rec.DisplayName)),
		Version:         strPtr(OrUnknown(rec.Version)),
		Publisher:       strPtr(OrUnknown(rec.Publisher)),
		InstallLocation: Optional(deref(rec.InstallLocation)),
		InstallDate:     Optional(deref(rec.InstallDate)),
		Source:          &kind,
	}
}

// OrUnknown returns s trimmed, or Unknown when it is empty.
func OrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Unknown
	}
	return s
}

// Optional returns nil for an empty string and a pointer to the trimmed value otherwise.
func Optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// Value returns the pointed-to string or "".
func Value(p *string) string {
	return deref(p)
}

func strPtr(s string) *string { return &s }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Options selects the optional fallback sources.
type Options struct {
	IncludeWindowsStore bool `json:"include_windows_store" yaml:"include_windows_store"`
	IncludePortable     bool `json:"include_portable" yaml:"include_portable"`
	IncludeInventory    bool `json:"include_inventory" yaml:"include_inventory"`
}

// DefaultOptions enables only the inventory fallback.
func DefaultOptions() Options {
	return Options{IncludeInventory: true}
}
