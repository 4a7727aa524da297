package log

import (
	"context"
	"io"
	"log/slog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// SetupJSONLogger installs a slog JSON provider writing to w. Errors logged
// through it carry the cockroachdb stack trace under "stacktrace".
func SetupJSONLogger(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(lvl))
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     levelVar,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
	SetProvider(&slogProvider{logger: slog.New(handler), level: levelVar})
	return nil
}

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

type slogProvider struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

func (p *slogProvider) GetLogger() Logger {
	return &slogLogger{logger: p.logger}
}

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: p.logger.With(ComponentKey, name)}
}

func (p *slogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

// slogLogger adapts *slog.Logger to Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.logger.Debug(msg, fields...) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.logger.Info(msg, fields...) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.logger.Warn(msg, fields...) }

func (l *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	l.logger.Error(msg, fields...)
}

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(fields...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.logger.Enabled(ctx, slog.Level(level))
}
