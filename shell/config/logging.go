package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger from cfg. Invalid levels fall back to info.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}

	if cfg.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, options))
	}

	return slog.New(slog.NewTextHandler(w, options))
}

func validLogLevel(value string) bool {
	var level slog.Level
	return level.UnmarshalText([]byte(value)) == nil
}
