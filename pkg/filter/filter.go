// pkg/filter/filter.go - Package for filtering catalog applications by id

package filter

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/logging"
)

// AppFilter holds the --app selection.
type AppFilter struct {
	apps []string
}

// NewAppFilter creates an empty filter.
func NewAppFilter() *AppFilter {
	return &AppFilter{}
}

// RegisterFlags registers the --app flag on fs.
func (f *AppFilter) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(
		&f.apps,
		"app",
		nil,
		"Check only the specified application id(s). "+
			"Can be repeated or given as a comma-separated list.",
	)
}

// SetApps sets the filter programmatically.
func (f *AppFilter) SetApps(apps []string) {
	f.apps = apps
}

// Apps returns the current filter.
func (f *AppFilter) Apps() []string {
	return f.apps
}

// HasFilter returns true if any ids are set.
func (f *AppFilter) HasFilter() bool {
	return len(f.apps) > 0
}

// Apply returns the applications whose id appears in the filter, keeping
// catalog order. Without a filter it returns all unchanged.
func (f *AppFilter) Apply(all []detect.ApplicationDescriptor) []detect.ApplicationDescriptor {
	if len(f.apps) == 0 {
		return all
	}

	want := make(map[string]struct{}, len(f.apps))
	for _, id := range f.apps {
		want[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	var filtered []detect.ApplicationDescriptor
	for _, app := range all {
		if _, ok := want[strings.ToLower(app.ID)]; ok {
			filtered = append(filtered, app)
		}
	}
	logging.Info("Filtered catalog via --app", "requested", len(f.apps), "matched", len(filtered))
	return filtered
}

// Unknown returns the requested ids that are not in the catalog.
func (f *AppFilter) Unknown(all []detect.ApplicationDescriptor) []string {
	have := make(map[string]struct{}, len(all))
	for _, app := range all {
		have[strings.ToLower(app.ID)] = struct{}{}
	}
	var missing []string
	for _, id := range f.apps {
		if _, ok := have[strings.ToLower(strings.TrimSpace(id))]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
