package detect

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/windowsadmins/installcheck/pkg/inventory"
	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/names"
)

// Query is the input of a single source scan. Each source reads only the
// fields it needs: Registry and WindowsStore use Pattern, Portable uses App,
// Inventory uses Tokens and Snapshot.
type Query struct {
	Pattern  string
	Tokens   []string
	Snapshot *inventory.Snapshot
	App      ApplicationDescriptor
}

// Source scans one evidence origin. Scan never fails: an unreadable source
// reports no records and logs the reason.
type Source interface {
	Kind() SourceKind
	Scan(ctx context.Context, q Query) []InstallationRecord
}

// Sources are the evidence sources in precedence order. A nil source finds nothing.
type Sources struct {
	Registry  Source
	Store     Source
	Portable  Source
	Inventory Source
}

// Pipeline applies first-match-wins precedence over the sources.
type Pipeline struct {
	sources Sources
	cache   *inventory.Cache
	extract func([]string) []string
	workers int
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds how many applications DetectBatch checks concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock overrides the batch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithExtractor overrides the token extractor used for the inventory fallback.
func WithExtractor(extract func([]string) []string) Option {
	return func(p *Pipeline) { p.extract = extract }
}

// New builds a pipeline. A nil cache behaves as an empty inventory.
func New(sources Sources, cache *inventory.Cache, opts ...Option) *Pipeline {
	if cache == nil {
		cache = inventory.NewSeeded(inventory.Snapshot{})
	}
	p := &Pipeline{
		sources: sources,
		cache:   cache,
		extract: names.Extract,
		workers: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detect returns the normalized status of app. It never panics and never
// returns an error: failures are reported in the status' Error field.
func (p *Pipeline) Detect(ctx context.Context, app ApplicationDescriptor, opts Options) (status InstallationStatus) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Detection failed unexpectedly", "app", app.ID, "panic", r, "stack", string(debug.Stack()))
			status = Failed(fmt.Errorf("detection of %s failed: %v", app.ID, r))
		}
	}()

	if !app.Searchable() {
		logging.Debug("Application has no search patterns or hints, skipping", "app", app.ID)
		return NotInstalled()
	}

	rec, kind, err := p.firstMatch(ctx, app, opts)
	if err != nil {
		logging.Warn("Detection aborted", "app", app.ID, "error", err)
		return Failed(err)
	}
	if rec == nil {
		logging.Info("Application not installed", "app", app.ID)
		return NotInstalled()
	}

	status = Installed(*rec, kind)
	logging.Info("Application installed",
		"app", app.ID,
		"displayName", Value(status.DisplayName),
		"version", Value(status.Version),
		"source", status.Source.String(),
	)
	return status
}

func (p *Pipeline) firstMatch(ctx context.Context, app ApplicationDescriptor, opts Options) (*InstallationRecord, SourceKind, error) {
	if rec, err := p.byPattern(ctx, p.sources.Registry, app); rec != nil || err != nil {
		return rec, kindOf(p.sources.Registry, SourceRegistry), err
	}

	if opts.IncludeWindowsStore {
		if rec, err := p.byPattern(ctx, p.sources.Store, app); rec != nil || err != nil {
			return rec, kindOf(p.sources.Store, SourceWindowsStore), err
		}
	}

	if opts.IncludePortable && p.sources.Portable != nil && app.HasHints() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if recs := p.sources.Portable.Scan(ctx, Query{App: app}); len(recs) > 0 {
			return &recs[0], kindOf(p.sources.Portable, SourcePortable), nil
		}
	}

	if opts.IncludeInventory && p.sources.Inventory != nil {
		tokens := p.extract(app.SearchPatterns)
		if len(tokens) == 0 {
			logging.Debug("No tokens for inventory fallback", "app", app.ID)
			return nil, 0, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		snapshot := p.cache.Get(ctx)
		if recs := p.sources.Inventory.Scan(ctx, Query{Tokens: tokens, Snapshot: snapshot, App: app}); len(recs) > 0 {
			return &recs[0], kindOf(p.sources.Inventory, SourceInventory), nil
		}
	}

	return nil, 0, nil
}

// byPattern tries each search pattern in order and returns the first record of the first hit.
func (p *Pipeline) byPattern(ctx context.Context, src Source, app ApplicationDescriptor) (*InstallationRecord, error) {
	if src == nil {
		return nil, nil
	}
	for _, pattern := range app.SearchPatterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if recs := src.Scan(ctx, Query{Pattern: pattern, App: app}); len(recs) > 0 {
			logging.Debug("Pattern matched", "app", app.ID, "pattern", pattern, "source", src.Kind().String(), "hits", len(recs))
			return &recs[0], nil
		}
	}
	return nil, nil
}

func kindOf(src Source, fallback SourceKind) SourceKind {
	if src != nil && src.Kind().Valid() {
		return src.Kind()
	}
	return fallback
}
