//go:build windows

package inventory

import (
	"context"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

// Win32_Product mirrors the WMI class columns read for the inventory.
type Win32_Product struct {
	Name            string `wmi:"Name"`
	Version         string `wmi:"Version"`
	Vendor          string `wmi:"Vendor"`
	InstallLocation string `wmi:"InstallLocation"`
	InstallDate     string `wmi:"InstallDate"`
}

const productQuery = "SELECT Name, Version, Vendor, InstallLocation, InstallDate FROM Win32_Product"

// WMIQuerier lists Windows Installer products through WMI. The query
// typically takes several seconds.
type WMIQuerier struct{}

// Query runs the Win32_Product query. The WMI call itself cannot be
// interrupted; ctx only stops the caller from waiting on it.
func (WMIQuerier) Query(ctx context.Context) ([]Record, error) {
	type result struct {
		products []Win32_Product
		err      error
	}
	done := make(chan result, 1)
	go func() {
		var products []Win32_Product
		err := wmi.Query(productQuery, &products)
		done <- result{products, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		records := make([]Record, 0, len(res.products))
		for _, p := range res.products {
			if strings.TrimSpace(p.Name) == "" {
				continue
			}
			records = append(records, Record{
				Name:            strings.TrimSpace(p.Name),
				Version:         strings.TrimSpace(p.Version),
				Vendor:          strings.TrimSpace(p.Vendor),
				InstallLocation: strings.TrimSpace(p.InstallLocation),
				InstallDateRaw:  strings.TrimSpace(p.InstallDate),
			})
		}
		return records, nil
	}
}
