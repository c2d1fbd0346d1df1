// Package buildinfo holds version and build metadata stamped at compile time via ldflags.
package buildinfo

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

// startTime records when the process started.
var startTime = time.Now()

// BuildInfo returns compile-time and platform metadata. This is the
// static information appropriate for "cogflow version" output.
func BuildInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"git_branch": GitBranch,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}

// RuntimeInfo returns build metadata plus runtime state (uptime, etc.).
// Use this for health endpoints and status pages.
func RuntimeInfo() map[string]string {
	info := BuildInfo()
	info["uptime"] = HumanUptime()
	return info
}

// Uptime returns the duration since process start.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// HumanUptime returns the process uptime in the "3 days" style preferred
// by the demo CLI's status output, rather than Go's raw duration format.
func HumanUptime() string {
	return humanize.RelTime(startTime, time.Now(), "", "")
}

// String returns a one-line summary for logging.
func String() string {
	return fmt.Sprintf("cogflow %s (%s@%s) built %s", Version, GitCommit, GitBranch, BuildTime)
}

// UserAgent returns an HTTP User-Agent string suitable for outgoing
// requests made by the bridge adapters. Format follows the convention:
// ProductName/Version (+URL).
func UserAgent() string {
	return fmt.Sprintf("cogflow/%s (+https://github.com/nugget/cogflow)", Version)
}
