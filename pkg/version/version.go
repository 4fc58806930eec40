// Package version reports the corpusidx build. The variables are set with
// -ldflags at build time, for example:
//
//	-X github.com/Aman-CERP/corpusidx/pkg/version.Version=1.2.0
package version

import (
	"fmt"
	"runtime"
)

// Program is the binary name used in version strings.
const Program = "corpusidx"

// Version is the release version, "dev" for local builds.
var Version = "dev"

var (
	// Commit is the short git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the toolchain the binary was built with.
	GoVersion = runtime.Version()
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Program   string `json:"program"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns the one-line version with build details.
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s, %s/%s)",
		Program, Version, Commit, Date, GoVersion, runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version.
func Short() string {
	return Version
}

// IsDev reports whether this is an unversioned local build.
func IsDev() bool {
	return Version == "dev"
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Program:   Program,
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
