// Package logging configures the SDK-wide zerolog logger. Components obtain
// scoped loggers via Component so log lines can be filtered per subsystem.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Initialize sets up the global logger with the given level. Unknown levels
// fall back to info.
func Initialize(logLevel string) {
	zerolog.TimeFieldFormat = time.RFC3339

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}

	logger = zerolog.New(consoleWriter).
		With().
		Timestamp().
		Logger()

	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = logger
}

// Component returns a logger tagged with a component field.
func Component(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
