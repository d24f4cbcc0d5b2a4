// pkg/reporting/reporting.go - batch detection report for external tools

package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/installcheck/pkg/config"
	"github.com/windowsadmins/installcheck/pkg/detect"
	"github.com/windowsadmins/installcheck/pkg/logging"
	"github.com/windowsadmins/installcheck/pkg/version"
)

// HostInfo identifies the machine the report was produced on.
type HostInfo struct {
	Hostname        string `json:"hostname" yaml:"hostname"`
	Platform        string `json:"platform" yaml:"platform"`
	PlatformVersion string `json:"platform_version,omitempty" yaml:"platform_version,omitempty"`
	KernelArch      string `json:"kernel_arch,omitempty" yaml:"kernel_arch,omitempty"`
	ToolVersion     string `json:"tool_version" yaml:"tool_version"`
}

// ItemRecord is one application row of the report.
type ItemRecord struct {
	ID               string                    `json:"id" yaml:"id"`
	Status           detect.InstallationStatus `json:"status" yaml:"status"`
	RunningProcesses []string                  `json:"running_processes,omitempty" yaml:"running_processes,omitempty"`
	UpdateAvailable  bool                      `json:"update_available" yaml:"update_available"`
}

// Report is the serialized outcome of a batch.
type Report struct {
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Host      HostInfo       `json:"host" yaml:"host"`
	Summary   detect.Summary `json:"summary" yaml:"summary"`
	Results   []ItemRecord   `json:"results" yaml:"results"`
}

// ProcessProbe returns the entries of names that are currently running.
type ProcessProbe func(names []string) ([]string, error)

// hostInfo is replaced in tests.
var hostInfo = func() HostInfo {
	info := HostInfo{Platform: runtime.GOOS, KernelArch: runtime.GOARCH, ToolVersion: version.Version().Version}
	hi, err := host.Info()
	if err != nil {
		logging.Debug("Unable to read host info", "error", err)
		if name, err := os.Hostname(); err == nil {
			info.Hostname = name
		}
		return info
	}
	info.Hostname = hi.Hostname
	info.Platform = hi.Platform
	info.PlatformVersion = hi.PlatformVersion
	info.KernelArch = hi.KernelArch
	return info
}

// Build assembles a report from a batch. apps supplies the process names and
// latest versions used for the caller-side columns; probe may be nil.
func Build(batch detect.BatchResult, apps []detect.ApplicationDescriptor, probe ProcessProbe) *Report {
	byID := make(map[string]detect.ApplicationDescriptor, len(apps))
	for _, app := range apps {
		byID[app.ID] = app
	}

	report := &Report{
		Timestamp: batch.Timestamp,
		Host:      hostInfo(),
		Summary:   batch.Summary,
		Results:   make([]ItemRecord, 0, len(batch.Results)),
	}
	for _, res := range batch.Results {
		item := ItemRecord{ID: res.ID, Status: res.Status}
		app := byID[res.ID]
		if res.Status.IsInstalled {
			item.UpdateAvailable = version.UpdateAvailable(detect.Value(res.Status.Version), app.LatestVersion)
			if probe != nil && len(app.ProcessNames) > 0 {
				running, err := probe(app.ProcessNames)
				if err != nil {
					logging.Debug("Process probe failed", "app", res.ID, "error", err)
				}
				item.RunningProcesses = running
			}
		}
		report.Results = append(report.Results, item)
	}
	return report
}

// Write serializes the report in format to w.
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case config.FormatJSON, "":
		return r.WriteJSON(w)
	case config.FormatYAML:
		return r.WriteYAML(w)
	case config.FormatCSV:
		return r.WriteCSV(w)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteFile writes the report to path, creating parent directories.
func (r *Report) WriteFile(path, format string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Write(file, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteJSON writes indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return err
	}
	return encoder.Close()
}

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{
	"id", "installed", "display_name", "version", "publisher",
	"install_location", "install_date", "source", "error", "update_available",
}

// WriteCSV writes one row per application. Nil fields are empty cells.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, item := range r.Results {
		st := item.Status
		source := ""
		if st.Source != nil {
			source = st.Source.String()
		}
		row := []string{
			item.ID,
			strconv.FormatBool(st.IsInstalled),
			detect.Value(st.DisplayName),
			detect.Value(st.Version),
			detect.Value(st.Publisher),
			detect.Value(st.InstallLocation),
			detect.Value(st.InstallDate),
			source,
			detect.Value(st.Error),
			strconv.FormatBool(item.UpdateAvailable),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
