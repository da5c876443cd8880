// Package version holds build metadata injected at link time via ldflags.
package version

import "runtime"

var (
	// GitRelease is the release tag, e.g. "v1.4.2".
	GitRelease = "dev"

	// GitCommit is the short commit hash the binary was built from.
	GitCommit = "unknown"

	// GitCommitDate is the commit date of GitCommit.
	GitCommitDate = "unknown"

	// GoInfo is the Go toolchain version used for the build.
	GoInfo = runtime.Version()
)
