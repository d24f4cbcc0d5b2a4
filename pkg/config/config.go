// pkg/config/config.go - configuration settings for InstallCheck.

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the machine-wide configuration file.
const ConfigPath = `C:\ProgramData\InstallCheck\Config.yaml`

// ConfigPathEnv overrides ConfigPath when set.
const ConfigPathEnv = "INSTALLCHECK_CONFIG"

// CSPRegistryPath is the policy key read when no YAML file is present.
const CSPRegistryPath = `SOFTWARE\InstallCheck\Config`

// Output formats accepted by OutputFormat.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Configuration holds the configurable options for InstallCheck in YAML format
type Configuration struct {
	CatalogPath string `yaml:"CatalogPath"`
	LogDir      string `yaml:"LogDir"`
	LogLevel    string `yaml:"LogLevel"`
	Debug       bool   `yaml:"Debug"`
	Verbose     bool   `yaml:"Verbose"`

	// Detection options. IncludeInventory is a pointer so an absent key keeps the default of true.
	IncludeWindowsStore bool  `yaml:"IncludeWindowsStore"`
	IncludePortable     bool  `yaml:"IncludePortable"`
	IncludeInventory    *bool `yaml:"IncludeInventory,omitempty"`

	StoreAllUsers         bool     `yaml:"StoreAllUsers"`
	PortableRoots         []string `yaml:"PortableRoots,omitempty"`
	PortableMaxCandidates int      `yaml:"PortableMaxCandidates"`
	InventoryRetries      int      `yaml:"InventoryRetries"`
	Workers               int      `yaml:"Workers"`
	OutputFormat          string   `yaml:"OutputFormat"`
}

// GetDefaultConfig provides default configuration values.
func GetDefaultConfig() *Configuration {
	inventory := true
	return &Configuration{
		CatalogPath:           `C:\ProgramData\InstallCheck\applications.yaml`,
		LogDir:                `C:\ProgramData\InstallCheck\logs`,
		LogLevel:              "INFO",
		IncludeInventory:      &inventory,
		PortableMaxCandidates: 50,
		InventoryRetries:      2,
		Workers:               1,
		OutputFormat:          FormatJSON,
	}
}

// ResolvePath returns the config path to use: explicit flag, then environment, then ConfigPath.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv(ConfigPathEnv); env != "" {
		return env
	}
	return ConfigPath
}

// LoadConfig loads the configuration from a YAML file.
// If the file doesn't exist, it falls back to CSP OMA-URI registry settings and then to defaults.
func LoadConfig(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Configuration file does not exist: %s", path)
		cfg, cspErr := LoadConfigFromCSP()
		if cspErr == nil {
			log.Printf("Loaded configuration from CSP registry path: %s", CSPRegistryPath)
			return cfg, nil
		}
		log.Printf("No CSP configuration available (%v), using defaults", cspErr)
		return GetDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data on top of the defaults.
func ParseConfig(data []byte) (*Configuration, error) {
	cfg := GetDefaultConfig()
	// Unmarshal replaces the pointer only when the key is present.
	cfg.IncludeInventory = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports values that cannot be used.
func (c *Configuration) Validate() error {
	switch strings.ToLower(c.OutputFormat) {
	case FormatJSON, FormatYAML, FormatCSV:
	default:
		return fmt.Errorf("unsupported OutputFormat %q", c.OutputFormat)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "ERROR", "WARN", "INFO", "DEBUG":
	default:
		return fmt.Errorf("unsupported LogLevel %q", c.LogLevel)
	}
	if c.Workers < 1 {
		return fmt.Errorf("Workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// InventoryEnabled reports the effective IncludeInventory value.
func (c *Configuration) InventoryEnabled() bool {
	return c.IncludeInventory == nil || *c.IncludeInventory
}

func applyDefaults(cfg *Configuration) {
	def := GetDefaultConfig()
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = def.CatalogPath
	}
	if cfg.LogDir == "" {
		cfg.LogDir = def.LogDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.IncludeInventory == nil {
		cfg.IncludeInventory = def.IncludeInventory
	}
	if cfg.PortableMaxCandidates <= 0 {
		cfg.PortableMaxCandidates = def.PortableMaxCandidates
	}
	if cfg.InventoryRetries <= 0 {
		cfg.InventoryRetries = def.InventoryRetries
	}
	if cfg.Workers == 0 {
		cfg.Workers = def.Workers
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = def.OutputFormat
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
}
