// Package logging builds the structured logger shared by both shells.
package logging

import (
	"io"
	"log/slog"
	"os"

	"doc-translator/internal/domain"
)

// New creates a slog.Logger writing to w (stderr when nil) with the configured
// level and text or JSON format.
func New(cfg domain.LoggingSettings, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: ToSlogLevel(cfg.Level),
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops every record. Used by tests and fakes.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ToSlogLevel converts a configured level name. Unknown levels default to info.
func ToSlogLevel(level string) slog.Level {
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
