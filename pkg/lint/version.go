package lint

import "fmt"

// Library version.
const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// PackVersion packs a version as major*1000000 + minor*1000 + patch.
func PackVersion(major, minor, patch uint32) uint32 {
	return major*1000000 + minor*1000 + patch
}

// Version returns the packed library version.
func Version() uint32 {
	return PackVersion(VersionMajor, VersionMinor, VersionPatch)
}

// FormatVersion renders a packed version as "name: MAJOR.MINOR.PATCH" with
// major = v/1000000, minor = v/1000 and patch = v%1000.
func FormatVersion(name string, v uint32) string {
	return fmt.Sprintf("%s: %d.%d.%d", name, v/1000000, v/1000, v%1000)
}
