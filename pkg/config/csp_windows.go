//go:build windows

package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// LoadConfigFromCSP loads configuration from Windows CSP OMA-URI registry settings.
func LoadConfigFromCSP() (*Configuration, error) {
	cfg := GetDefaultConfig()

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, CSPRegistryPath, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSP registry key %s: %w", CSPRegistryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "CatalogPath", &cfg.CatalogPath)
	loadStringFromRegistry(key, "LogDir", &cfg.LogDir)
	loadStringFromRegistry(key, "LogLevel", &cfg.LogLevel)
	loadStringFromRegistry(key, "OutputFormat", &cfg.OutputFormat)

	loadIntFromRegistry(key, "PortableMaxCandidates", &cfg.PortableMaxCandidates)
	loadIntFromRegistry(key, "InventoryRetries", &cfg.InventoryRetries)
	loadIntFromRegistry(key, "Workers", &cfg.Workers)

	loadBoolFromRegistry(key, "Debug", &cfg.Debug)
	loadBoolFromRegistry(key, "Verbose", &cfg.Verbose)
	loadBoolFromRegistry(key, "IncludeWindowsStore", &cfg.IncludeWindowsStore)
	loadBoolFromRegistry(key, "IncludePortable", &cfg.IncludePortable)
	loadBoolFromRegistry(key, "IncludeInventory", cfg.IncludeInventory)
	loadBoolFromRegistry(key, "StoreAllUsers", &cfg.StoreAllUsers)

	loadStringArrayFromRegistry(key, "PortableRoots", &cfg.PortableRoots)

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
		log.Printf("CSP: Loaded %s = %s", valueName, val)
	}
}

// loadBoolFromRegistry accepts "true"/"false", "1"/"0" and DWORD 1/0.
func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
	}
}

func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
	}
}

// loadStringArrayFromRegistry reads REG_MULTI_SZ or a comma-separated REG_SZ.
func loadStringArrayFromRegistry(key registry.Key, valueName string, target *[]string) {
	var raw []string
	if vals, _, err := key.GetStringsValue(valueName); err == nil {
		raw = vals
	} else if val, _, err := key.GetStringValue(valueName); err == nil {
		raw = strings.Split(val, ",")
	}
	filtered := make([]string, 0, len(raw))
	for _, v := range raw {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			filtered = append(filtered, trimmed)
		}
	}
	if len(filtered) > 0 {
		*target = filtered
		log.Printf("CSP: Loaded %s = %v", valueName, filtered)
	}
}
