package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer at
// debug level, everything else writes JSON at info level.
func NewLogger(env string) zerolog.Logger {
	return newLogger(env, os.Stdout)
}

// NewStderrLogger is NewLogger for processes whose stdout carries a
// protocol stream (the MCP stdio server).
func NewStderrLogger(env string) zerolog.Logger {
	return newLogger(env, os.Stderr)
}

func newLogger(env string, out *os.File) zerolog.Logger {
	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
