// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the release version.
	Version = "0.1.0-dev"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Stamp is the resolved build information.
type Stamp struct {
	Version   string
	Commit    string
	Dirty     bool
	BuildTime string
}

// Current resolves the linker-injected values, falling back to the
// toolchain's VCS settings for anything left at its default.
func Current() Stamp {
	stamp := Stamp{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
	}
	if stamp.Commit != "unknown" {
		return stamp
	}
	info, ok := readBuildInfo()
	if !ok {
		return stamp
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			stamp.Commit = setting.Value
			if len(stamp.Commit) > 7 {
				stamp.Commit = stamp.Commit[:7]
			}
		case "vcs.modified":
			stamp.Dirty = setting.Value == "true"
		case "vcs.time":
			if stamp.BuildTime == "unknown" {
				stamp.BuildTime = setting.Value
			}
		}
	}
	return stamp
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	stamp := Current()
	dirty := ""
	if stamp.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", stamp.Version, stamp.Commit, dirty, stamp.BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA.
func Commit() string {
	return Current().Commit
}
