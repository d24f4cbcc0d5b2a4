// pkg/version/version.go - build information and version comparison helpers.

package version

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// These values are private which ensures they can only be set with the build flags.
var (
	version   = "unknown"
	branch    = "unknown"
	revision  = "unknown"
	goVersion = "unknown"
	buildDate = "unknown"
	appName   = "installcheck"
)

// Info is a structure with version build information about the current application.
type Info struct {
	Version   string `json:"version"`
	Branch    string `json:"branch"`
	Revision  string `json:"revision"`
	GoVersion string `json:"go_version"`
	BuildDate string `json:"build_date"`
}

// Version returns a structure with the current version information.
func Version() Info {
	return Info{
		Version:   version,
		Branch:    branch,
		Revision:  revision,
		GoVersion: goVersion,
		BuildDate: buildDate,
	}
}

// Print outputs the application name and version string.
func Print() {
	fmt.Printf("%s %s\n", appName, Version().Version)
}

// PrintFull prints the application name and detailed version information.
func PrintFull() {
	v := Version()
	fmt.Printf("%s %s\n", appName, v.Version)
	fmt.Printf("  branch: \t%s\n", v.Branch)
	fmt.Printf("  revision: \t%s\n", v.Revision)
	fmt.Printf("  build date: \t%s\n", v.BuildDate)
	fmt.Printf("  go version: \t%s\n", v.GoVersion)
}

// Normalize trims trailing ".0" segments from version strings.
func Normalize(v string) string {
	parts := strings.Split(strings.TrimSpace(v), ".")
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// IsOlder reports whether local is strictly older than remote.
// Unparseable versions are never considered older.
func IsOlder(local, remote string) bool {
	vLocal, errLocal := goversion.NewVersion(local)
	vRemote, errRemote := goversion.NewVersion(remote)
	if errLocal != nil || errRemote != nil {
		return false
	}
	return vLocal.LessThan(vRemote)
}

// UpdateAvailable decides whether latest supersedes installed.
// When either side does not parse as a version, the normalized strings are
// compared for inequality instead.
func UpdateAvailable(installed, latest string) bool {
	installed, latest = strings.TrimSpace(installed), strings.TrimSpace(latest)
	if installed == "" || latest == "" || strings.EqualFold(installed, "Unknown") {
		return false
	}
	vInstalled, errInstalled := goversion.NewVersion(installed)
	vLatest, errLatest := goversion.NewVersion(latest)
	if errInstalled != nil || errLatest != nil {
		return Normalize(installed) != Normalize(latest)
	}
	return vInstalled.LessThan(vLatest)
}
