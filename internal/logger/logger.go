// Package logger wraps log/slog behind the small interface the rest of the
// code logs through.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// AppLogger is the logging surface used by services, controllers and
// handlers.
type AppLogger interface {
	Info(message string, args ...slog.Attr)
	Warn(message string, args ...slog.Attr)
	Error(message string, err error, args ...slog.Attr)
	Fatal(message string, err error, args ...slog.Attr)
	With(args ...slog.Attr) AppLogger
}

type appLogger struct {
	log *slog.Logger
}

// New builds a JSON logger writing to w at the given level.
func New(w io.Writer, level, appHash string) AppLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	l := slog.New(handler)
	if appHash != "" {
		l = l.With(slog.String("hash", appHash))
	}
	return &appLogger{log: l}
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() AppLogger {
	return &appLogger{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *appLogger) Info(message string, args ...slog.Attr) {
	l.log.LogAttrs(context.Background(), slog.LevelInfo, message, args...)
}

func (l *appLogger) Warn(message string, args ...slog.Attr) {
	l.log.LogAttrs(context.Background(), slog.LevelWarn, message, args...)
}

func (l *appLogger) Error(message string, err error, args ...slog.Attr) {
	l.log.LogAttrs(context.Background(), slog.LevelError, message, append(args, errAttr(err))...)
}

func (l *appLogger) Fatal(message string, err error, args ...slog.Attr) {
	l.Error(message, err, args...)
	os.Exit(1)
}

func (l *appLogger) With(args ...slog.Attr) AppLogger {
	anyArgs := make([]any, 0, len(args))
	for _, a := range args {
		anyArgs = append(anyArgs, a)
	}
	return &appLogger{log: l.log.With(anyArgs...)}
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
