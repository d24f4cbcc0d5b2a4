package blocking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubProcesses(t *testing.T, procs []RunningProcess, err error) {
	t.Helper()
	orig := listProcesses
	listProcesses = func() ([]RunningProcess, error) { return procs, err }
	t.Cleanup(func() { listProcesses = orig })
}

func TestRunningProcesses(t *testing.T) {
	stubProcesses(t, []RunningProcess{
		{Name: "Code.exe", Exe: `C:\Users\me\AppData\Local\Programs\Microsoft VS Code\Code.exe`},
		{Name: "firefox.exe", Exe: `C:\Program Files\Mozilla Firefox\firefox.exe`},
		{Name: "svchost.exe"},
	}, nil)

	running, err := RunningProcesses([]string{
		"code.exe",
		"firefox",
		`C:\Program Files\Mozilla Firefox\firefox.exe`,
		`C:\Program Files\Other\firefox.exe`,
		"chrome.exe",
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"code.exe", "firefox", `C:\Program Files\Mozilla Firefox\firefox.exe`}, running)
}

func TestRunningProcessesEmpty(t *testing.T) {
	stubProcesses(t, nil, errors.New("should not be listed"))
	running, err := RunningProcesses(nil)
	assert.NoError(t, err)
	assert.Nil(t, running)
}

func TestRunningProcessesListFailure(t *testing.T) {
	stubProcesses(t, nil, errors.New("access denied"))
	_, err := RunningProcesses([]string{"code.exe"})
	assert.Error(t, err)
}

func TestRunningProcessesBareName(t *testing.T) {
	stubProcesses(t, []RunningProcess{{Name: "Zoom.exe"}}, nil)
	running, err := RunningProcesses([]string{"zoom", "zoom.ex"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"zoom"}, running)
}
