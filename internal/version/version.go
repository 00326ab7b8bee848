package version

import "fmt"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/sitecompiler/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("sitecompiler %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
