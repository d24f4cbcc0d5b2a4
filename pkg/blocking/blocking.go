// pkg/blocking/blocking.go - detection of running application processes

package blocking

import (
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/windowsadmins/installcheck/pkg/logging"
)

// RunningProcess is the name and executable path of a live process.
type RunningProcess struct {
	Name string
	Exe  string
}

// listProcesses is replaced in tests.
var listProcesses = func() ([]RunningProcess, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	out := make([]RunningProcess, 0, len(procs))
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		exe, _ := proc.Exe()
		out = append(out, RunningProcess{Name: name, Exe: exe})
	}
	return out, nil
}

// matches reports whether proc is the application appName. appName may be an
// absolute path, an executable name, or a bare name without extension.
func matches(appName string, proc RunningProcess) bool {
	clean := strings.ToLower(appName)
	processName := strings.ToLower(proc.Name)

	switch {
	case strings.HasPrefix(clean, "/") || filepath.VolumeName(appName) != "" || strings.HasPrefix(clean, `c:\`):
		return proc.Exe != "" && strings.EqualFold(proc.Exe, appName)
	case strings.HasSuffix(clean, ".exe"):
		return processName == clean
	default:
		return processName == clean || processName == clean+".exe"
	}
}

// RunningProcesses returns the entries of appNames that have a live process,
// in the order given.
func RunningProcesses(appNames []string) ([]string, error) {
	if len(appNames) == 0 {
		return nil, nil
	}
	procs, err := listProcesses()
	if err != nil {
		logging.Error("Failed to get process list", "error", err)
		return nil, err
	}

	var running []string
	for _, appName := range appNames {
		for _, proc := range procs {
			if matches(appName, proc) {
				logging.Debug("Found running app", "app", appName, "process", proc.Name)
				running = append(running, appName)
				break
			}
		}
	}
	return running, nil
}
