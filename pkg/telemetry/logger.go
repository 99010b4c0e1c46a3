// Package telemetry provides the observability surface of nimbusctl:
// structured logging via zerolog, Prometheus counters for reconcile
// activity, and optional OpenTelemetry spans around plan and apply.
package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the root logger for one invocation. Console format
// writes human-readable output to stderr; json writes machine-readable
// lines, one per event.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		})
	}

	logger = logger.With().Timestamp().Logger()
	return logger.Level(parseLevel(cfg.Level))
}

func parseLevel(level string) zerolog.Level {
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
