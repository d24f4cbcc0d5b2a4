package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/installcheck/pkg/detect"
)

func stubHost(t *testing.T) {
	t.Helper()
	orig := hostInfo
	hostInfo = func() HostInfo { return HostInfo{Hostname: "WS-0142", Platform: "windows", ToolVersion: "test"} }
	t.Cleanup(func() { hostInfo = orig })
}

func sampleBatch() (detect.BatchResult, []detect.ApplicationDescriptor) {
	code := detect.Installed(detect.InstallationRecord{
		DisplayName:     "Microsoft Visual Studio Code",
		Version:         "1.80.2",
		Publisher:       "Microsoft Corporation",
		InstallLocation: detect.Optional(`C:\Program Files\Microsoft VS Code`),
	}, detect.SourceRegistry)
	zip := detect.Installed(detect.InstallationRecord{DisplayName: "7-Zip 23.01", Version: "23.01"}, detect.SourceInventory)

	results := []detect.AppResult{
		{ID: "VSCode", Status: code},
		{ID: "Firefox", Status: detect.NotInstalled()},
		{ID: "7zip", Status: zip},
		{ID: "Broken", Status: detect.Failed(errors.New("detection of Broken failed: boom"))},
	}
	batch := detect.BatchResult{
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Summary:   detect.Summarize(results),
		Results:   results,
	}
	apps := []detect.ApplicationDescriptor{
		{ID: "VSCode", ProcessNames: []string{"Code.exe", "code-tunnel.exe"}, LatestVersion: "1.85.0"},
		{ID: "Firefox", ProcessNames: []string{"firefox.exe"}, LatestVersion: "121.0"},
		{ID: "7zip", LatestVersion: "23.01"},
		{ID: "Broken"},
	}
	return batch, apps
}

func TestBuild(t *testing.T) {
	stubHost(t)
	batch, apps := sampleBatch()
	var probed [][]string
	probe := func(names []string) ([]string, error) {
		probed = append(probed, names)
		return names[:1], nil
	}

	report := Build(batch, apps, probe)

	assert.Equal(t, batch.Timestamp, report.Timestamp)
	assert.Equal(t, "WS-0142", report.Host.Hostname)
	assert.Equal(t, detect.Summary{TotalApps: 4, InstalledCount: 2, NotInstalledCount: 2}, report.Summary)
	require.Len(t, report.Results, 4)

	assert.True(t, report.Results[0].UpdateAvailable)
	assert.Equal(t, []string{"Code.exe"}, report.Results[0].RunningProcesses)
	assert.False(t, report.Results[1].UpdateAvailable)
	assert.Nil(t, report.Results[1].RunningProcesses)
	assert.False(t, report.Results[2].UpdateAvailable)

	// Only installed applications with process names are probed.
	assert.Equal(t, [][]string{{"Code.exe", "code-tunnel.exe"}}, probed)
}

func TestWriteJSON(t *testing.T) {
	stubHost(t)
	batch, apps := sampleBatch()
	report := Build(batch, apps, nil)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, "JSON"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "timestamp")
	assert.Contains(t, decoded, "host")
	summary := decoded["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["installed_count"])

	results := decoded["results"].([]interface{})
	first := results[0].(map[string]interface{})
	status := first["status"].(map[string]interface{})
	assert.Equal(t, "VSCode", first["id"])
	assert.Equal(t, "Registry", status["source"])
	assert.Equal(t, true, first["update_available"])

	missing := results[1].(map[string]interface{})["status"].(map[string]interface{})
	assert.Nil(t, missing["version"])
	assert.Nil(t, missing["source"])
}

func TestWriteYAML(t *testing.T) {
	stubHost(t)
	batch, apps := sampleBatch()

	var buf bytes.Buffer
	require.NoError(t, Build(batch, apps, nil).Write(&buf, "yaml"))

	var decoded struct {
		Summary detect.Summary `yaml:"summary"`
		Results []struct {
			ID     string `yaml:"id"`
			Status struct {
				Source *string `yaml:"source"`
			} `yaml:"status"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 4, decoded.Summary.TotalApps)
	require.Len(t, decoded.Results, 4)
	assert.Equal(t, "Inventory", *decoded.Results[2].Status.Source)
	assert.Nil(t, decoded.Results[1].Status.Source)
}

func TestWriteCSV(t *testing.T) {
	stubHost(t)
	batch, apps := sampleBatch()

	var buf bytes.Buffer
	require.NoError(t, Build(batch, apps, nil).Write(&buf, "csv"))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"VSCode", "true", "Microsoft Visual Studio Code", "1.80.2", "Microsoft Corporation",
		`C:\Program Files\Microsoft VS Code`, "", "Registry", "", "true"}, rows[1])
	assert.Equal(t, []string{"Firefox", "false", "", "", "", "", "", "", "", "false"}, rows[2])
	assert.Equal(t, "detection of Broken failed: boom", rows[4][8])
}

func TestWriteUnsupportedFormat(t *testing.T) {
	stubHost(t)
	batch, apps := sampleBatch()
	assert.Error(t, Build(batch, apps, nil).Write(&bytes.Buffer{}, "xml"))
}

func TestWriteFile(t *testing.T) {
	stubHost(t)
	batch, apps := sampleBatch()
	path := filepath.Join(t.TempDir(), "reports", "installcheck.json")

	require.NoError(t, Build(batch, apps, nil).WriteFile(path, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_apps": 4`)
}
