// Package logging configures the process-wide slog logger.
//
// All operator output goes to stderr; stdout belongs to the protocol in
// every tool that speaks one.
package logging

import (
	"log/slog"
	"os"
)

// NewLogger creates a text logger on stderr at the named level. Unknown
// level names fall back to info.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: l,
	}))
}
