// Package logger provides structured logging for the Canopy server.
//
// The package installs a process-wide slog logger writing JSON records to
// stderr, keeping stdout free for commands that emit data. Call sites may use
// either the key-value form (Info, Warn, ...) or the printf form (Infof,
// Warnf, ...).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Option configures handler construction.
type Option func(*config)

type config struct {
	level  slog.Level
	writer io.Writer
}

// WithLevel sets the minimum level emitted by the handler.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithWriter directs handler output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// NewHandler constructs the slog handler used by the application.
func NewHandler(opts ...Option) slog.Handler {
	cfg := &config{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return slog.NewJSONHandler(cfg.writer, &slog.HandlerOptions{Level: cfg.level})
}

// Initialize installs the application handler as the process default logger.
func Initialize(opts ...Option) {
	slog.SetDefault(slog.New(NewHandler(opts...)))
}

// ParseLevel maps a level name to its slog.Level. Unrecognized or empty
// values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level with optional key-value attributes.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs at info level with optional key-value attributes.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs at warn level with optional key-value attributes.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs at error level with optional key-value attributes.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
}

// Fatalf logs a formatted message at error level and exits the process.
func Fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
