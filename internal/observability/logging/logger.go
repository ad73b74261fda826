package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process logger with a service attribute on
// every record and installs it as the slog default, so package-level
// logging in shared infrastructure lands in the same stream.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// parseLevel is forgiving: an unknown level means info, not an error,
// so a typo in LOG_LEVEL never takes a binary down.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
