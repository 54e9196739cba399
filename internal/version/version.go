// Package version exposes build metadata stamped in at link time.
package version

// Overridden via -ldflags="-X ..." in release builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
