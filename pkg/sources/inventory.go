package sources

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/inventory"
	"github.com/windowsadmins/installcheck/pkg/logging"
)

// Inventory matches tokens against the inventory snapshot.
//
// The snapshot only lists software registered through Windows Installer, so
// a miss here does not mean the application is absent.
type Inventory struct{}

// NewInventory returns an inventory source.
func NewInventory() *Inventory { return &Inventory{} }

// Kind implements detect.Source.
func (*Inventory) Kind() detect.SourceKind { return detect.SourceInventory }

// Scan runs a substring pass over every token, then a fuzzy pass over every
// token, and returns the first record either pass finds.
func (*Inventory) Scan(ctx context.Context, q detect.Query) (records []detect.InstallationRecord) {
	defer recoverScan("inventory", strings.Join(q.Tokens, ","), &records)

	if q.Snapshot == nil || q.Snapshot.Empty() || len(q.Tokens) == 0 {
		return nil
	}
	recs := q.Snapshot.Records

	for _, token := range q.Tokens {
		needle := strings.ToLower(token)
		if needle == "" {
			continue
		}
		for _, r := range recs {
			if strings.Contains(strings.ToLower(r.Name), needle) {
				logging.Debug("Inventory substring match", "token", token, "name", r.Name)
				return []detect.InstallationRecord{inventoryRecord(r)}
			}
		}
	}

	productNames := make([]string, len(recs))
	for i, r := range recs {
		productNames[i] = r.Name
	}
	for _, token := range q.Tokens {
		if token == "" {
			continue
		}
		matches := fuzzy.Find(token, productNames)
		if len(matches) == 0 {
			continue
		}
		// Matches come back ranked by score; keep snapshot order instead.
		first := matches[0].Index
		for _, m := range matches[1:] {
			if m.Index < first {
				first = m.Index
			}
		}
		logging.Debug("Inventory fuzzy match", "token", token, "name", recs[first].Name)
		return []detect.InstallationRecord{inventoryRecord(recs[first])}
	}
	return nil
}

func inventoryRecord(r inventory.Record) detect.InstallationRecord {
	return detect.InstallationRecord{
		DisplayName:     detect.OrUnknown(r.Name),
		Version:         detect.OrUnknown(r.Version),
		Publisher:       detect.OrUnknown(r.Vendor),
		InstallLocation: detect.Optional(r.InstallLocation),
		InstallDate:     detect.Optional(r.InstallDateRaw),
		SourceKind:      detect.SourceInventory,
	}
}
