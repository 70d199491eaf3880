package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger from the environment.
// FEED_LOG_LEVEL: debug, info, warn, error (default: info).
// FEED_LOG_FORMAT: console for human-readable stderr output; anything else
// writes JSON to stdout, which is what CloudWatch ingests.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("FEED_LOG_LEVEL")))
	log.Logger = New(os.Getenv("FEED_LOG_FORMAT"), os.Stdout, os.Stderr)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a timestamped logger writing JSON to out, or console output to
// consoleOut when format is "console".
func New(format string, out, consoleOut io.Writer) zerolog.Logger {
	if format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: consoleOut}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
