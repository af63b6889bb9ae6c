// Package version holds build information injected with -ldflags.
package version

import "fmt"

var (
	Version    = "devel"
	CommitHash = "none"
)

func String() string {
	return fmt.Sprintf("%s (commit %s)", Version, CommitHash)
}
