package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process logger writing text lines to stderr and installs
// it as the slog default. Level is one of "debug", "info", "warn", "error"
// (case-insensitive); anything else, including empty, means info. Components
// derive their own loggers from the returned one via With.
func Setup(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}
