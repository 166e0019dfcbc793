// Package logger provides the configured zerolog logger for a cell node.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger stamped with the service and cell node names so
// interleaved output from several nodes stays attributable. A level
// that does not parse falls back to info instead of failing startup.
func New(serviceName, nodeName, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	ctx := zerolog.New(os.Stdout).Level(lvl).With().
		Str("service", serviceName).
		Timestamp()
	if nodeName != "" {
		ctx = ctx.Str("node", nodeName)
	}
	return ctx.Logger()
}
