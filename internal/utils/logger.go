package utils

import (
	"log/slog"
	"os"
)

// NewDefaultLogger creates a default logger using slog with JSON output
func NewDefaultLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewDevelopmentLogger creates a logger optimized for development with text output
func NewDevelopmentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// NewLogger picks the logger flavor for the given environment.
func NewLogger(environment string) *slog.Logger {
	if environment == "production" {
		return NewDefaultLogger()
	}
	return NewDevelopmentLogger()
}
