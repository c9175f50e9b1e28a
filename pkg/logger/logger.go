// Package logger configures the service's structured logging: one JSON
// slog handler for the process, plus a gin middleware that scopes a
// request id onto every webhook and dashboard log line.
package logger

import (
	"log/slog"
	"os"
)

// New builds the process logger. Local and dev log at debug so call-flow
// decisions are visible while iterating; everything else stays at info.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
