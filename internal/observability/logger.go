package observability

import (
	"log/slog"
	"os"

	"github.com/hearthline/chartpress/internal/config"
)

// NewLogger builds the process-wide slog.Logger from config. Format "json"
// suits log shipping; the default "text" is what a one-shot chart run prints
// to a terminal.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
