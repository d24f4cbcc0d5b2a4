package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/names"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// AppxPackage is the subset of Get-AppxPackage output used for detection.
type AppxPackage struct {
	Name            string `json:"Name"`
	PackageFullName string `json:"PackageFullName"`
	Version         string `json:"Version"`
	Publisher       string `json:"Publisher"`
	InstallLocation string `json:"InstallLocation"`
}

// Store matches installed AppX packages by name. The package list is read
// once per Store value.
type Store struct {
	AllUsers bool

	run CommandRunner

	mu       sync.Mutex
	packages []AppxPackage
	loaded   bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCommandRunner replaces the PowerShell runner.
func WithCommandRunner(run CommandRunner) StoreOption {
	return func(s *Store) { s.run = run }
}

// NewStore returns a Windows Store source.
func NewStore(allUsers bool, opts ...StoreOption) *Store {
	s := &Store{AllUsers: allUsers, run: runCommand}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements detect.Source.
func (s *Store) Kind() detect.SourceKind { return detect.SourceWindowsStore }

// Scan returns the packages whose Name or PackageFullName matches q.Pattern.
func (s *Store) Scan(ctx context.Context, q detect.Query) (records []detect.InstallationRecord) {
	defer recoverScan("store", q.Pattern, &records)

	packages, err := s.load(ctx)
	if err != nil {
		logging.Debug("Windows Store scan failed", "pattern", q.Pattern, "error", err)
		return nil
	}

	for _, pkg := range packages {
		if !names.Match(q.Pattern, pkg.Name) && !names.Match(q.Pattern, pkg.PackageFullName) {
			continue
		}
		records = append(records, detect.InstallationRecord{
			DisplayName:     detect.OrUnknown(pkg.Name),
			Version:         detect.OrUnknown(pkg.Version),
			Publisher:       detect.OrUnknown(PublisherCN(pkg.Publisher)),
			InstallLocation: detect.Optional(pkg.InstallLocation),
			SourceKind:      detect.SourceWindowsStore,
		})
	}
	return records
}

func (s *Store) load(ctx context.Context) ([]AppxPackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.packages, nil
	}

	out, err := s.run(ctx, powershellPath(), "-NoProfile", "-NonInteractive", "-Command", s.command())
	if err != nil {
		return nil, fmt.Errorf("Get-AppxPackage: %w", err)
	}
	packages, err := ParseAppxPackages(out)
	if err != nil {
		return nil, err
	}
	s.packages, s.loaded = packages, true
	logging.Debug("AppX packages enumerated", "count", len(packages), "allUsers", s.AllUsers)
	return packages, nil
}

func (s *Store) command() string {
	cmd := "Get-AppxPackage"
	if s.AllUsers {
		cmd += " -AllUsers"
	}
	return cmd + " | Select-Object Name,PackageFullName,Version,Publisher,InstallLocation | ConvertTo-Json -Compress"
}

// ParseAppxPackages decodes ConvertTo-Json output, which is a bare object for
// a single package and an array otherwise. Empty output means no packages.
func ParseAppxPackages(data []byte) ([]AppxPackage, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '{' {
		var pkg AppxPackage
		if err := json.Unmarshal(data, &pkg); err != nil {
			return nil, fmt.Errorf("failed to parse AppX package: %w", err)
		}
		return []AppxPackage{pkg}, nil
	}
	var packages []AppxPackage
	if err := json.Unmarshal(data, &packages); err != nil {
		return nil, fmt.Errorf("failed to parse AppX package list: %w", err)
	}
	return packages, nil
}

// PublisherCN returns the CN= value of a distinguished name, or the input
// unchanged when it has none.
func PublisherCN(dn string) string {
	for _, part := range strings.Split(dn, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 3 && strings.EqualFold(part[:3], "CN=") {
			return strings.Trim(part[3:], `"`)
		}
	}
	return strings.TrimSpace(dn)
}

func powershellPath() string {
	if windir := os.Getenv("WINDIR"); windir != "" {
		return filepath.Join(windir, "system32", "WindowsPowershell", "v1.0", "powershell.exe")
	}
	return "powershell.exe"
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
