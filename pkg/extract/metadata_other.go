//go:build !windows

package extract

// ExeMetadata is only implemented on Windows.
func ExeMetadata(path string) (FileMetadata, error) {
	return FileMetadata{}, ErrNoVersionInfo
}
