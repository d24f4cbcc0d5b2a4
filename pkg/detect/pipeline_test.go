package detect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/installcheck/pkg/inventory"
)

// fakeSource returns canned records per pattern and counts calls.
type fakeSource struct {
	kind      SourceKind
	byPattern map[string][]InstallationRecord
	any       []InstallationRecord
	scan      func(Query) []InstallationRecord

	mu    sync.Mutex
	calls int
	seen  []Query
}

func (f *fakeSource) Kind() SourceKind { return f.kind }

func (f *fakeSource) Scan(_ context.Context, q Query) []InstallationRecord {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, q)
	f.mu.Unlock()
	if f.scan != nil {
		return f.scan(q)
	}
	if recs, ok := f.byPattern[q.Pattern]; ok {
		return recs
	}
	return f.any
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakes struct {
	registry, store, portable, inv *fakeSource
}

func newFakes() *fakes {
	return &fakes{
		registry: &fakeSource{kind: SourceRegistry},
		store:    &fakeSource{kind: SourceWindowsStore},
		portable: &fakeSource{kind: SourcePortable},
		inv:      &fakeSource{kind: SourceInventory},
	}
}

func (f *fakes) sources() Sources {
	return Sources{Registry: f.registry, Store: f.store, Portable: f.portable, Inventory: f.inv}
}

func (f *fakes) totalCalls() int {
	return f.registry.Calls() + f.store.Calls() + f.portable.Calls() + f.inv.Calls()
}

var vscode = ApplicationDescriptor{
	ID:             "VSCode",
	SearchPatterns: []string{"*Visual Studio Code*", "*VSCode*"},
}

var allOptions = Options{IncludeWindowsStore: true, IncludePortable: true, IncludeInventory: true}

func TestDetectRegistryMatch(t *testing.T) {
	f := newFakes()
	f.registry.byPattern = map[string][]InstallationRecord{
		"*Visual Studio Code*": {{DisplayName: "Microsoft Visual Studio Code", Version: "1.85.0", SourceKind: SourceRegistry}},
	}
	p := New(f.sources(), nil)

	status := p.Detect(context.Background(), vscode, DefaultOptions())

	require.True(t, status.IsInstalled)
	assert.Equal(t, "Microsoft Visual Studio Code", Value(status.DisplayName))
	assert.Equal(t, "1.85.0", Value(status.Version))
	assert.Equal(t, Unknown, Value(status.Publisher))
	assert.Nil(t, status.InstallLocation)
	assert.Nil(t, status.InstallDate)
	require.NotNil(t, status.Source)
	assert.Equal(t, SourceRegistry, *status.Source)
	assert.Nil(t, status.Error)
	assert.Equal(t, 1, f.registry.Calls(), "second pattern must not be tried after a hit")
}

func TestDetectRegistryBeatsOtherSources(t *testing.T) {
	for _, opts := range []Options{{}, DefaultOptions(), allOptions} {
		f := newFakes()
		f.registry.any = []InstallationRecord{{DisplayName: "Code", Version: "1.0"}}
		f.store.any = []InstallationRecord{{DisplayName: "Store Code"}}
		f.portable.any = []InstallationRecord{{DisplayName: "Portable Code"}}
		f.inv.any = []InstallationRecord{{DisplayName: "Inventory Code"}}

		app := vscode
		app.ExecutableNames = []string{"Code.exe"}
		status := New(f.sources(), nil).Detect(context.Background(), app, opts)

		require.True(t, status.IsInstalled)
		assert.Equal(t, SourceRegistry, *status.Source)
		assert.Equal(t, 0, f.store.Calls()+f.portable.Calls()+f.inv.Calls())
	}
}

func TestDetectPrecedence(t *testing.T) {
	app := ApplicationDescriptor{
		ID:                    "Tool",
		SearchPatterns:        []string{"*Tool*"},
		CommonInstallSubpaths: []string{"Tool"},
		ExecutableNames:       []string{"tool.exe"},
	}

	t.Run("store after registry", func(t *testing.T) {
		f := newFakes()
		f.store.any = []InstallationRecord{{DisplayName: "Tool", Version: "2.0"}}
		f.portable.any = []InstallationRecord{{DisplayName: "Portable Tool"}}
		status := New(f.sources(), nil).Detect(context.Background(), app, allOptions)
		assert.Equal(t, SourceWindowsStore, *status.Source)
		assert.Equal(t, 0, f.portable.Calls())
	})

	t.Run("store disabled", func(t *testing.T) {
		f := newFakes()
		f.store.any = []InstallationRecord{{DisplayName: "Tool"}}
		f.portable.any = []InstallationRecord{{DisplayName: "Portable Tool"}}
		status := New(f.sources(), nil).Detect(context.Background(), app, Options{IncludePortable: true})
		assert.Equal(t, SourcePortable, *status.Source)
		assert.Equal(t, 0, f.store.Calls())
	})

	t.Run("portable called once with the descriptor", func(t *testing.T) {
		f := newFakes()
		f.portable.any = []InstallationRecord{{DisplayName: "Portable Tool"}}
		status := New(f.sources(), nil).Detect(context.Background(), app, Options{IncludePortable: true})
		assert.Equal(t, SourcePortable, *status.Source)
		require.Equal(t, 1, f.portable.Calls())
		assert.Equal(t, "Tool", f.portable.seen[0].App.ID)
	})

	t.Run("portable skipped without hints", func(t *testing.T) {
		f := newFakes()
		f.portable.any = []InstallationRecord{{DisplayName: "Portable Tool"}}
		noHints := ApplicationDescriptor{ID: "Tool", SearchPatterns: []string{"*Tool*"}}
		status := New(f.sources(), nil).Detect(context.Background(), noHints, Options{IncludePortable: true})
		assert.False(t, status.IsInstalled)
		assert.Equal(t, 0, f.portable.Calls())
	})

	t.Run("inventory disabled", func(t *testing.T) {
		f := newFakes()
		f.inv.any = []InstallationRecord{{DisplayName: "Tool"}}
		status := New(f.sources(), nil).Detect(context.Background(), app, Options{})
		assert.False(t, status.IsInstalled)
		assert.Equal(t, 0, f.inv.Calls())
	})
}

func TestDetectInventoryFallback(t *testing.T) {
	f := newFakes()
	var gotTokens []string
	f.inv.scan = func(q Query) []InstallationRecord {
		gotTokens = q.Tokens
		require.NotNil(t, q.Snapshot)
		for _, rec := range q.Snapshot.Records {
			if rec.Name == "VSCodeUserSetup" {
				return []InstallationRecord{{DisplayName: rec.Name, Version: rec.Version}}
			}
		}
		return nil
	}
	cache := inventory.NewSeeded(inventory.Snapshot{Records: []inventory.Record{
		{Name: "Something Else", Version: "1.0"},
		{Name: "VSCodeUserSetup", Version: "1.80.2"},
	}})

	status := New(f.sources(), cache).Detect(context.Background(), vscode, allOptions)

	require.True(t, status.IsInstalled)
	assert.Equal(t, "1.80.2", Value(status.Version))
	assert.Equal(t, SourceInventory, *status.Source)
	assert.Contains(t, gotTokens, "Code")
	assert.Contains(t, gotTokens, "VSCode")
}

func TestDetectNotInstalledHasNilFields(t *testing.T) {
	f := newFakes()
	status := New(f.sources(), nil).Detect(context.Background(), vscode, allOptions)

	assert.Equal(t, InstallationStatus{}, status)
	assert.False(t, status.IsInstalled)
	assert.Nil(t, status.DisplayName)
	assert.Nil(t, status.Version)
	assert.Nil(t, status.Publisher)
	assert.Nil(t, status.InstallLocation)
	assert.Nil(t, status.InstallDate)
	assert.Nil(t, status.Source)
	assert.Nil(t, status.Error)
}

func TestDetectUnsearchableSkipsSources(t *testing.T) {
	f := newFakes()
	f.registry.any = []InstallationRecord{{DisplayName: "x"}}
	p := New(f.sources(), inventory.NewCache(inventory.QuerierFunc(func(context.Context) ([]inventory.Record, error) {
		t.Fatal("inventory must not be queried")
		return nil, nil
	})))

	for _, app := range []ApplicationDescriptor{
		{ID: "Empty"},
		{ID: "Blank", SearchPatterns: []string{"", "  "}},
	} {
		status := p.Detect(context.Background(), app, allOptions)
		assert.False(t, status.IsInstalled)
		assert.Nil(t, status.Error)
	}
	assert.Equal(t, 0, f.totalCalls())
}

func TestDetectIdempotent(t *testing.T) {
	f := newFakes()
	f.registry.byPattern = map[string][]InstallationRecord{
		"*VSCode*": {{DisplayName: "VSCode", Version: "1.2", Publisher: "Microsoft", InstallLocation: Optional(`C:\Code`)}},
	}
	p := New(f.sources(), nil)

	first := p.Detect(context.Background(), vscode, allOptions)
	second := p.Detect(context.Background(), vscode, allOptions)
	assert.Equal(t, first, second)
}

func TestDetectPanicBecomesError(t *testing.T) {
	f := newFakes()
	f.registry.scan = func(Query) []InstallationRecord { panic("boom") }

	status := New(f.sources(), nil).Detect(context.Background(), vscode, allOptions)

	assert.False(t, status.IsInstalled)
	require.NotNil(t, status.Error)
	assert.Contains(t, *status.Error, "boom")
	assert.Nil(t, status.DisplayName)
	assert.Nil(t, status.Source)
}

func TestDetectCancelled(t *testing.T) {
	f := newFakes()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := New(f.sources(), nil).Detect(ctx, vscode, allOptions)

	assert.False(t, status.IsInstalled)
	require.NotNil(t, status.Error)
	assert.Equal(t, context.Canceled.Error(), *status.Error)
	assert.Equal(t, 0, f.totalCalls())
}

func TestDetectInventoryBuiltOnce(t *testing.T) {
	f := newFakes()
	f.inv.scan = func(q Query) []InstallationRecord { return nil }
	queries := 0
	cache := inventory.NewCache(inventory.QuerierFunc(func(context.Context) ([]inventory.Record, error) {
		queries++
		return []inventory.Record{{Name: "Other"}}, nil
	}))
	p := New(f.sources(), cache)

	p.Detect(context.Background(), vscode, DefaultOptions())
	p.Detect(context.Background(), ApplicationDescriptor{ID: "Zoom", SearchPatterns: []string{"*Zoom*"}}, DefaultOptions())

	assert.Equal(t, 1, queries)
	assert.Equal(t, 1, cache.Builds())
	assert.Equal(t, 2, f.inv.Calls())
}

func TestDetectNoTokensSkipsInventory(t *testing.T) {
	f := newFakes()
	p := New(f.sources(), nil, WithExtractor(func([]string) []string { return nil }))

	status := p.Detect(context.Background(), vscode, DefaultOptions())

	assert.False(t, status.IsInstalled)
	assert.Equal(t, 0, f.inv.Calls())
}

func TestDetectUsesSourceKindOfSource(t *testing.T) {
	f := newFakes()
	// A record without a kind takes the kind of the source that produced it.
	f.store.any = []InstallationRecord{{DisplayName: "Pkg"}}
	status := New(f.sources(), nil).Detect(context.Background(), vscode, allOptions)
	require.NotNil(t, status.Source)
	assert.Equal(t, SourceWindowsStore, *status.Source)
}

func TestFailed(t *testing.T) {
	status := Failed(errors.New("registry unavailable"))
	assert.False(t, status.IsInstalled)
	assert.Equal(t, "registry unavailable", Value(status.Error))
}
