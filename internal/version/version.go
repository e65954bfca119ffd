package version

import "fmt"

// Build metadata, overridden via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String 返回单行构建信息，形如 "basiswatcher dev (unknown, built unknown)"。
func String() string {
	return fmt.Sprintf("basiswatcher %s (%s, built %s)", Version, Commit, BuildDate)
}
