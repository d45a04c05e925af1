// Package logging wires up slog for the scenario runner: colorized output on
// a terminal, JSON otherwise.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// ParseLevel maps a config level string to a slog.Level. Unknown strings
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a tint handler when out is a terminal and a JSON
// handler otherwise, so piped or collected output stays machine-readable.
func NewHandler(out io.Writer, level slog.Level) slog.Handler {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return tint.NewHandler(out, &tint.Options{Level: level})
	}
	return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
}
