package logutil

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options configure the process logger.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a slog logger. Format "json" emits JSON lines, anything else
// uses the tint text handler.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := ParseLevel(opts.Level)
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}

// Init builds the logger and installs it as the slog default.
func Init(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs a structured info message on the default logger.
func Info(msg string, fields map[string]interface{}) {
	slog.Info(msg, attrs(fields)...)
}

// Warn logs a structured warning on the default logger.
func Warn(msg string, fields map[string]interface{}) {
	slog.Warn(msg, attrs(fields)...)
}

// Error logs a structured error message including the error string.
func Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	slog.Error(msg, args...)
}

func attrs(fields map[string]interface{}) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields))
	for k, v := range fields {
		out = append(out, slog.Any(k, v))
	}
	return out
}

// Discard returns a logger that drops everything; handy for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
