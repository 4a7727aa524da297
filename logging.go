package lgbm

import (
	"context"

	"github.com/YuminosukeSato/lgbm/pkg/log"
)

// verbosityLogger drops records below the level implied by a LightGBM
// verbosity value: < 0 fatal only, 0 warnings, 1 info, > 1 debug.
type verbosityLogger struct {
	inner log.Logger
	min   log.Level
}

func componentLogger(name string, verbosity int) log.Logger {
	return &verbosityLogger{inner: log.GetLoggerWithName(name), min: verbosityLevel(verbosity)}
}

func verbosityLevel(verbosity int) log.Level {
	switch {
	case verbosity < 0:
		return log.LevelError
	case verbosity == 0:
		return log.LevelWarn
	case verbosity == 1:
		return log.LevelInfo
	default:
		return log.LevelDebug
	}
}

func (l *verbosityLogger) Debug(msg string, fields ...any) {
	if l.min <= log.LevelDebug {
		l.inner.Debug(msg, fields...)
	}
}

func (l *verbosityLogger) Info(msg string, fields ...any) {
	if l.min <= log.LevelInfo {
		l.inner.Info(msg, fields...)
	}
}

func (l *verbosityLogger) Warn(msg string, fields ...any) {
	if l.min <= log.LevelWarn {
		l.inner.Warn(msg, fields...)
	}
}

func (l *verbosityLogger) Error(msg string, fields ...any) {
	l.inner.Error(msg, fields...)
}

func (l *verbosityLogger) With(fields ...any) log.Logger {
	return &verbosityLogger{inner: l.inner.With(fields...), min: l.min}
}

func (l *verbosityLogger) Enabled(ctx context.Context, level log.Level) bool {
	return level >= l.min && l.inner.Enabled(ctx, level)
}
