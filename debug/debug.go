package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

type Level int

const (
	_ Level = iota
	Error
	Warning
	Info
	Debug
	Trace
)

// LevelTrace sits below slog.LevelDebug for wire level chatter.
const LevelTrace = slog.LevelDebug - 4

type loggerCtx int

const (
	loggerCtxKey = loggerCtx(iota)
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// Logger returns the logger carried by ctx, or slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

func convertLevel(level Level) slog.Level {
	switch level {
	case Error:
		return slog.LevelError
	case Warning:
		return slog.LevelWarn
	case Info:
		return slog.LevelInfo
	case Debug:
		return slog.LevelDebug
	case Trace:
		return LevelTrace
	default:
		return slog.LevelDebug
	}
}

func (l Level) Log(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Log(ctx, convertLevel(l), msg, args...)
}

// Silence returns a context whose log calls go nowhere.
func Silence(ctx context.Context) context.Context {
	return WithLogger(ctx, discard)
}

func LogError(ctx context.Context, msg string, err error) {
	Logger(ctx).Log(ctx, slog.LevelError, msg, slog.Any("error", err))
}

func WithGroup(ctx context.Context, name string) (context.Context, *slog.Logger) {
	logger := Logger(ctx).WithGroup(name)
	return WithLogger(ctx, logger), logger
}

func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := Logger(ctx).With(args...)
	return WithLogger(ctx, logger), logger
}

func Start(ctx context.Context, name string, args ...any) (context.Context, func()) {
	logger := Logger(ctx).WithGroup(name)
	ctx = WithLogger(ctx, logger)
	logger.Log(ctx, slog.LevelDebug, fmt.Sprintf("%s Starting...", name), args...)
	start := time.Now()

	return ctx, func() {
		args = append(args, slog.Duration("elapsed", time.Since(start)))
		logger.Log(ctx, slog.LevelDebug, fmt.Sprintf("%s Done", name), args...)
	}
}
