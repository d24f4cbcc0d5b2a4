package sources

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/extract"
	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/utils"
)

// DefaultMaxCandidates bounds how many executables a single probe examines.
const DefaultMaxCandidates = 50

const portableWalkDepth = 2

var errCandidateLimit = errors.New("candidate limit reached")

// DefaultPortableRoots are the per-user and per-machine install roots.
var DefaultPortableRoots = []string{
	`%LOCALAPPDATA%\Programs`,
	`%ProgramFiles%`,
	`%ProgramFiles(x86)%`,
	`%LOCALAPPDATA%`,
	`%USERPROFILE%\Apps`,
	`%USERPROFILE%\PortableApps`,
}

// MetadataReader reads the version resource of an executable.
type MetadataReader func(path string) (extract.FileMetadata, error)

// Portable probes install roots for an application's executables.
type Portable struct {
	Roots         []string
	MaxCandidates int

	metadata MetadataReader
}

// PortableOption configures a Portable source.
type PortableOption func(*Portable)

// WithMetadataReader replaces the version resource reader.
func WithMetadataReader(read MetadataReader) PortableOption {
	return func(p *Portable) { p.metadata = read }
}

// NewPortable returns a portable source over roots. Environment references in
// roots are expanded; roots that expand to nothing are dropped. Nil roots
// select DefaultPortableRoots.
func NewPortable(roots []string, maxCandidates int, opts ...PortableOption) *Portable {
	if roots == nil {
		roots = DefaultPortableRoots
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	p := &Portable{MaxCandidates: maxCandidates, metadata: extract.ExeMetadata}
	for _, root := range roots {
		expanded := utils.ExpandWindowsEnv(root)
		if expanded == "" || strings.Contains(expanded, "%") {
			logging.Debug("Skipping unresolved portable root", "root", root)
			continue
		}
		p.Roots = append(p.Roots, expanded)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Kind implements detect.Source.
func (p *Portable) Kind() detect.SourceKind { return detect.SourcePortable }

// Scan probes every root and subpath hint of q.App and returns the first
// executable found. Without executable names there is nothing to look for.
func (p *Portable) Scan(ctx context.Context, q detect.Query) (records []detect.InstallationRecord) {
	defer recoverScan("portable", q.App.ID, &records)

	app := q.App
	if len(app.ExecutableNames) == 0 {
		return nil
	}
	subpaths := app.CommonInstallSubpaths
	if len(subpaths) == 0 {
		subpaths = []string{""}
	}

	for _, root := range p.Roots {
		for _, sub := range subpaths {
			if ctx.Err() != nil {
				return nil
			}
			dir := filepath.Join(root, sub)
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				continue
			}
			if exe := p.findExecutable(dir, app.ExecutableNames); exe != "" {
				logging.Debug("Portable executable found", "app", app.ID, "path", exe)
				return []detect.InstallationRecord{p.record(app, exe)}
			}
		}
	}
	return nil
}

// findExecutable checks dir for each name directly, then walks up to
// portableWalkDepth levels examining at most MaxCandidates executables.
func (p *Portable) findExecutable(dir string, exeNames []string) string {
	for _, name := range exeNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	wanted := make(map[string]struct{}, len(exeNames))
	for _, name := range exeNames {
		wanted[strings.ToLower(name)] = struct{}{}
	}

	var found string
	examined := 0
	baseDepth := strings.Count(filepath.Clean(dir), string(filepath.Separator))
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.Count(filepath.Clean(path), string(filepath.Separator))-baseDepth > portableWalkDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".exe") {
			return nil
		}
		examined++
		if _, ok := wanted[strings.ToLower(d.Name())]; ok {
			found = path
			return fs.SkipAll
		}
		if examined >= p.MaxCandidates {
			return errCandidateLimit
		}
		return nil
	})
	if errors.Is(err, errCandidateLimit) {
		logging.Debug("Portable candidate limit reached", "dir", dir, "limit", p.MaxCandidates)
	}
	return found
}

func (p *Portable) record(app detect.ApplicationDescriptor, exe string) detect.InstallationRecord {
	rec := detect.InstallationRecord{
		DisplayName:     app.ID,
		Version:         detect.Unknown,
		Publisher:       detect.Unknown,
		InstallLocation: detect.Optional(filepath.Dir(exe)),
		SourceKind:      detect.SourcePortable,
	}
	if info, err := os.Stat(exe); err == nil {
		rec.InstallDate = detect.Optional(info.ModTime().Format("20060102"))
	}
	meta, err := p.metadata(exe)
	if err != nil {
		logging.Debug("No version resource", "path", exe, "error", err)
		return rec
	}
	rec.Version = detect.OrUnknown(meta.VersionString)
	if meta.ProductName != "" {
		rec.DisplayName = meta.ProductName
	}
	return rec
}
