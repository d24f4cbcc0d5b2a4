//go:build !windows

package inventory

import (
	"context"
	"errors"
)

// WMIQuerier is unavailable off Windows; its query always fails, which the
// cache turns into an empty snapshot.
type WMIQuerier struct{}

// Query returns an unsupported-platform error.
func (WMIQuerier) Query(ctx context.Context) ([]Record, error) {
	return nil, errors.New("WMI inventory is only available on Windows")
}
