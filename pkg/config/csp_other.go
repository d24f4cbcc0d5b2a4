//go:build !windows

package config

import "errors"

// LoadConfigFromCSP is only meaningful on Windows.
func LoadConfigFromCSP() (*Configuration, error) {
	return nil, errors.New("CSP registry configuration is only available on Windows")
}
