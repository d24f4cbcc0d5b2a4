// Package inventory holds the process-lifetime snapshot of the software
// inventory query and the querier that produces it.
//
// The inventory only reflects software registered through Windows Installer
// (Win32_Product), so an application missing from it is not proof that the
// application is absent.
package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/retry"
)

// Record is one row of the inventory query.
type Record struct {
	Name            string `json:"name" yaml:"name"`
	Version         string `json:"version" yaml:"version"`
	Vendor          string `json:"vendor" yaml:"vendor"`
	InstallLocation string `json:"install_location" yaml:"install_location"`
	InstallDateRaw  string `json:"install_date_raw" yaml:"install_date_raw"`
}

// Snapshot is the bulk inventory result. A snapshot with no records is the
// sentinel stored when the query failed or returned nothing.
type Snapshot struct {
	Records []Record
	BuiltAt time.Time
}

// Empty reports whether the snapshot holds no records.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Records) == 0
}

// Querier runs the expensive inventory query.
type Querier interface {
	Query(ctx context.Context) ([]Record, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context) ([]Record, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context) ([]Record, error) { return f(ctx) }

// Cache builds the snapshot at most once and serves it afterwards.
// It is never refreshed on its own; long-running hosts call Reset.
type Cache struct {
	mu       sync.Mutex
	querier  Querier
	retry    retry.RetryConfig
	snapshot *Snapshot
	builds   int
	now      func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithRetry sets the backoff used around the query.
func WithRetry(cfg retry.RetryConfig) CacheOption {
	return func(c *Cache) { c.retry = cfg }
}

// NewCache returns a lazy cache over querier. The default is a single attempt.
func NewCache(querier Querier, opts ...CacheOption) *Cache {
	c := &Cache{
		querier: querier,
		retry:   retry.RetryConfig{MaxRetries: 1},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSeeded returns a cache that already holds snapshot and never queries.
func NewSeeded(snapshot Snapshot) *Cache {
	c := NewCache(nil)
	c.snapshot = &snapshot
	return c
}

// Get returns the snapshot, building it on first use.
func (c *Cache) Get(ctx context.Context) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil {
		return c.snapshot
	}
	c.builds++
	c.snapshot = c.build(ctx)
	return c.snapshot
}

// Builds returns how many times the snapshot has been built.
func (c *Cache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// Reset drops the snapshot so the next Get queries again.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

func (c *Cache) build(ctx context.Context) *Snapshot {
	empty := &Snapshot{BuiltAt: c.now()}
	if c.querier == nil {
		return empty
	}

	start := c.now()
	var records []Record
	err := retry.Retry(ctx, c.retry, func() error {
		var qerr error
		records, qerr = c.querier.Query(ctx)
		return qerr
	})
	if err != nil && ctx.Err() != nil {
		logging.Debug("Inventory query cancelled, caching empty snapshot", "cause", context.Cause(ctx))
		return empty
	}
	if err != nil {
		logging.Debug("Inventory query failed, caching empty snapshot", "error", err)
		return empty
	}
	if len(records) == 0 {
		logging.Debug("Inventory query returned no records")
		return empty
	}

	logging.Debug("Inventory snapshot built", "records", len(records), "duration", c.now().Sub(start).String())
	return &Snapshot{Records: records, BuiltAt: c.now()}
}
