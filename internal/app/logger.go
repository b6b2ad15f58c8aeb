package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger tuned to the environment:
// prod gets JSON at INFO, everything else text at DEBUG.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
