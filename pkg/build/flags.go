// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for a Go application. It allows embedding metadata such as the application
// name, build timestamp, Git commit hash, and semantic version into the binary
// at compile time using linker flags, for example:
//
//	go build -ldflags "-X filterplay/pkg/build.buildName=filterplay \
//	    -X filterplay/pkg/build.buildVersion=0.3.1 ..."
package build

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Description is the one-line summary shown in command help.
const Description = "Real-time band filtering WAV player"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "filterplay",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "0.0.0-dev",
	}
	buildSemver = semver.MustParse("0.0.0-dev")
)

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. This must be called early in program startup
// to ensure all build information is properly set. Returns an error if any
// required build flag is missing or the version is not a semantic version;
// the development defaults stay in place in that case.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}
	v, err := semver.NewVersion(buildVersion)
	if err != nil {
		return fmt.Errorf("BuildVersion %q: %w", buildVersion, err)
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = v.String()
	buildSemver = v

	return nil
}

// GetBuildFlags returns the current build information. Initialize()
// must be called before this function to ensure the build information
// is valid. This function is safe to call after initialization.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// IsRelease reports whether the build carries a release version, one with no
// pre-release suffix.
func IsRelease() bool {
	return buildSemver.Prerelease() == ""
}

// Summary renders the build information for --version output. Pre-release
// builds are marked as such.
func Summary() string {
	f := buildFlags
	s := fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
	if !IsRelease() {
		s += " [pre-release]"
	}
	return s
}
