package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below slog.LevelDebug and is reserved for the cog
// runtime's per-message chatter: one line per worker receive and one per
// output send (see
// cog.Cog's run loop), left out of Debug so a graph with many cogs
// doesn't drown Debug's coarser lifecycle events (cog constructed, worker
// exiting) in per-value noise.
const LevelTrace = slog.Level(-8)

// ParseLogLevel converts a config string to a slog.Level.
// Supported values: trace, debug, info, warn, error (case-insensitive).
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// ReplaceLogLevelNames is the slog.HandlerOptions.ReplaceAttr hook that
// renders LevelTrace as "TRACE" instead of slog's default "DEBUG-4", so a
// graph run with log_level: trace reads cleanly in cmd/cogflow's output.
func ReplaceLogLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
