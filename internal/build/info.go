// Package build exposes version information stamped at link time.
package build

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}

// UserAgent identifies this binary in outgoing requests, e.g.
// "ntfy-go/1.2.0 (linux/amd64)".
func UserAgent() string {
	return fmt.Sprintf("ntfy-go/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
