// Package version holds build metadata injected at link time.
package version

import "runtime"

// Set via -ldflags at build time.
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo reports the Go toolchain version used for the build.
var GoInfo = runtime.Version()
