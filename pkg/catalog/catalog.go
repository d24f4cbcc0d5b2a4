// pkg/catalog/catalog.go - application catalog loading.

package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/logging"
)

// Catalog is the list of applications to detect.
type Catalog struct {
	Applications []detect.ApplicationDescriptor `yaml:"applications"`
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	logging.Info("Successfully processed catalog", "path", path, "applications", len(cat.Applications))
	return cat, nil
}

// Parse decodes catalog YAML. Every application needs an id, and ids must be
// unique ignoring case.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("unable to parse YAML: %w", err)
	}

	seen := make(map[string]int, len(cat.Applications))
	for i := range cat.Applications {
		app := &cat.Applications[i]
		app.ID = strings.TrimSpace(app.ID)
		if app.ID == "" {
			return nil, fmt.Errorf("application %d has no id", i+1)
		}
		key := strings.ToLower(app.ID)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate application id %q (entries %d and %d)", app.ID, prev+1, i+1)
		}
		seen[key] = i
		if !app.Searchable() {
			logging.Warn("Application has no search patterns or hints and will never be found", "app", app.ID)
		}
	}
	return &cat, nil
}
