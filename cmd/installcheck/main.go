// cmd/installcheck/main.go - reports which catalog applications are installed.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/installcheck/pkg/blocking"
	"github.com/windowsadmins/installcheck/pkg/catalog"
	"github.com/windowsadmins/installcheck/pkg/config"
	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/filter"
	"github.com/windowsadmins/installcheck/pkg/inventory"
	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/reporting"
	"github.com/windowsadmins/installcheck/pkg/retry"
	"github.com/windowsadmins/installcheck/pkg/sources"
	"github.com/windowsadmins/installcheck/pkg/utils"
	"github.com/windowsadmins/installcheck/pkg/version"
)

var logger *logging.Console

func main() {
	argsPatched := utils.PatchWindowsArgs()

	configPath := pflag.String("config", "", "Path to the configuration file.")
	catalogPath := pflag.String("catalog", "", "Path to the application catalog (overrides CatalogPath).")
	includeStore := pflag.Bool("store", false, "Also search Windows Store packages.")
	includePortable := pflag.Bool("portable", false, "Also probe install roots for portable executables.")
	noInventory := pflag.Bool("no-inventory", false, "Skip the Win32_Product inventory fallback.")
	format := pflag.String("format", "", "Output format: json, yaml or csv.")
	output := pflag.String("output", "", "Write the report to this file instead of stdout.")
	workers := pflag.Int("workers", 0, "Number of applications checked concurrently.")
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	appFilter := filter.NewAppFilter()
	appFilter.RegisterFlags(pflag.CommandLine)

	// Count the number of -v flags.
	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv, -vvv)")
	pflag.Parse()

	if *versionFlag {
		if verbosity > 0 {
			version.PrintFull()
		} else {
			version.Print()
		}
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the configuration file.
	pflag.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "catalog":
			cfg.CatalogPath = *catalogPath
		case "store":
			cfg.IncludeWindowsStore = *includeStore
		case "portable":
			cfg.IncludePortable = *includePortable
		case "no-inventory":
			enabled := !*noInventory
			cfg.IncludeInventory = &enabled
		case "format":
			cfg.OutputFormat = strings.ToLower(*format)
		case "workers":
			cfg.Workers = *workers
		}
	})

	// 0 => config LogLevel, 1 => WARN, 2 => INFO, 3+ => DEBUG
	switch {
	case verbosity == 1:
		cfg.LogLevel = "WARN"
	case verbosity == 2:
		cfg.LogLevel = "INFO"
	case verbosity >= 3:
		cfg.LogLevel = "DEBUG"
		cfg.Debug = true
	}
	if verbosity > 0 {
		cfg.Verbose = true
	}

	logger = logging.New(verbosity > 0)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	if *showConfig {
		if cfgYaml, err := yaml.Marshal(cfg); err == nil {
			fmt.Print(string(cfgYaml))
		}
		os.Exit(0)
	}

	if err := logging.Init(cfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()
	if argsPatched {
		logging.Debug("Command line re-parsed from Windows", "args", os.Args[1:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appFilter, *output); err != nil {
		logger.Error("%v", err)
		logging.CloseLogger()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Configuration, appFilter *filter.AppFilter, output string) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	apps := appFilter.Apply(cat.Applications)
	for _, id := range appFilter.Unknown(cat.Applications) {
		logger.Warning("Application %q is not in the catalog", id)
	}
	if appFilter.HasFilter() && len(apps) == 0 {
		logger.Printf("No catalog applications match --app filter; exiting.")
		return nil
	}

	pipeline := newPipeline(cfg)
	opts := detect.Options{
		IncludeWindowsStore: cfg.IncludeWindowsStore,
		IncludePortable:     cfg.IncludePortable,
		IncludeInventory:    cfg.InventoryEnabled(),
	}

	logging.Info("Starting detection",
		"applications", len(apps),
		"store", opts.IncludeWindowsStore,
		"portable", opts.IncludePortable,
		"inventory", opts.IncludeInventory,
		"workers", cfg.Workers,
	)
	start := time.Now()
	batch := pipeline.DetectBatch(ctx, apps, opts)
	logging.Info("Detection finished", "duration", time.Since(start).String())

	report := reporting.Build(batch, apps, blocking.RunningProcesses)
	if output == "" {
		return report.Write(os.Stdout, cfg.OutputFormat)
	}
	if err := report.WriteFile(output, cfg.OutputFormat); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Success("Report written to %s (%d of %d installed)", output, batch.Summary.InstalledCount, batch.Summary.TotalApps)
	return nil
}

func newPipeline(cfg *config.Configuration) *detect.Pipeline {
	srcs := detect.Sources{
		Registry:  sources.NewRegistry(sources.DefaultUninstallReader()),
		Store:     sources.NewStore(cfg.StoreAllUsers),
		Portable:  sources.NewPortable(cfg.PortableRoots, cfg.PortableMaxCandidates),
		Inventory: sources.NewInventory(),
	}

	backoff := retry.DefaultConfig()
	backoff.MaxRetries = cfg.InventoryRetries
	cache := inventory.NewCache(inventory.WMIQuerier{}, inventory.WithRetry(backoff))

	return detect.New(srcs, cache, detect.WithWorkers(cfg.Workers))
}
