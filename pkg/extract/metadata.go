// Package extract reads version metadata embedded in executables.
package extract

import (
	"errors"
	"fmt"
)

// ErrNoVersionInfo is returned when a file carries no version resource.
var ErrNoVersionInfo = errors.New("no version resource")

// FileMetadata holds the fields read from an executable's version resource.
type FileMetadata struct {
	ProductName   string
	VersionString string
	VersionMajor  int
	VersionMinor  int
	VersionPatch  int
	VersionBuild  int
}

func formatVersion(major, minor, patch, build int) string {
	return fmt.Sprintf("%d.%d.%d.%d", major, minor, patch, build)
}
