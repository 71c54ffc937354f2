package app

import (
	"io"
	"log/slog"
)

// newLogger builds the instance's logger from its configuration. It is never
// installed globally: two App instances over different trees log
// independently, and every line carries the owning tree's namespace so
// interleaved output stays attributable.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
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
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}

	return slog.New(handler).With("namespace", cfg.Namespace)
}
