//go:build windows

package extract

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ExeMetadata reads the fixed file version and ProductName of path.
func ExeMetadata(path string) (FileMetadata, error) {
	var zero windows.Handle
	size, err := windows.GetFileVersionInfoSize(path, &zero)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("GetFileVersionInfoSize %s: %w", path, err)
	}
	if size == 0 {
		return FileMetadata{}, ErrNoVersionInfo
	}

	info := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&info[0])); err != nil {
		return FileMetadata{}, fmt.Errorf("GetFileVersionInfo %s: %w", path, err)
	}

	var fixed *windows.VS_FIXEDFILEINFO
	var fixedLen uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&info[0]), `\`, unsafe.Pointer(&fixed), &fixedLen); err != nil || fixedLen == 0 || fixed == nil {
		return FileMetadata{}, ErrNoVersionInfo
	}

	meta := FileMetadata{
		VersionMajor: int(fixed.FileVersionMS >> 16),
		VersionMinor: int(fixed.FileVersionMS & 0xffff),
		VersionPatch: int(fixed.FileVersionLS >> 16),
		VersionBuild: int(fixed.FileVersionLS & 0xffff),
	}
	meta.VersionString = formatVersion(meta.VersionMajor, meta.VersionMinor, meta.VersionPatch, meta.VersionBuild)
	meta.ProductName = productName(info)
	return meta, nil
}

// productName reads StringFileInfo\<lang><codepage>\ProductName using the first translation.
func productName(info []byte) string {
	var translation *[2]uint16
	var tlen uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&info[0]), `\VarFileInfo\Translation`, unsafe.Pointer(&translation), &tlen); err != nil || tlen < 4 || translation == nil {
		return ""
	}
	sub := fmt.Sprintf(`\StringFileInfo\%04x%04x\ProductName`, translation[0], translation[1])

	var value *uint16
	var vlen uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&info[0]), sub, unsafe.Pointer(&value), &vlen); err != nil || vlen == 0 || value == nil {
		return ""
	}
	return windows.UTF16PtrToString(value)
}
