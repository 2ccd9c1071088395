// Package version holds build-time version information.
package version

import "fmt"

// Populated at build time via -ldflags.
var (
	BuildVersion = "dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// String returns a human-readable version line.
func String() string {
	return fmt.Sprintf("modgen %s (commit %s, built %s)", BuildVersion, BuildCommit, BuildDate)
}
