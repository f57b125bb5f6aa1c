// Package version carries build metadata, set at link time with
// -ldflags "-X github.com/MrSnakeDoc/daylog/internal/version.Version=v1.2.0 ...".
package version

import (
	"fmt"
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version()               // go version
)

// String renders the build line printed by `daylog version` and at startup.
func String() string {
	return fmt.Sprintf("daylog %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
