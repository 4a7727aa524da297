// Package log provides the structured logging interface used by lgbm.
//
// The interface is a small, slog-compatible surface so the backend can be
// swapped: the default provider writes through zerolog, SetupJSONLogger
// switches to log/slog with cockroachdb stack traces, and tests capture
// records with TestLogger.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("lgbm.booster").With(
//	    log.BoosterIDKey, id,
//	)
//	logger.Info("Finished loading data",
//	    log.SamplesKey, 128,
//	    log.FeaturesKey, 1,
//	)
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Every method takes a message and an even list of key/value pairs. Error
// additionally accepts an error value as its first field; backends attach its
// stack trace when one is available.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-iteration
	// split statistics.
	Debug(msg string, fields ...any)

	// Info logs general progress: dataset construction, training rounds.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the operation, such as an
	// ignored parameter or a round that could not split.
	Warn(msg string, fields ...any)

	// Error logs a failed operation.
	//
	// Example:
	//   logger.Error("UpdateOneIter failed",
	//       err,
	//       log.IterationKey, 12,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log_level", "must be one of debug, info, warn, error", s)
	}
}

// LoggerProvider creates and configures loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
