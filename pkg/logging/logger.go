// Package logging provides the small structured-logging interface used
// throughout the voice agent, backed by log/slog.
package logging

import (
	"log/slog"
	"os"
)

// Logger is the logging surface every package depends on. Components accept
// this interface rather than a concrete type so tests can swap in NoOpLogger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything. Useful as a default when no logger is
// configured and in tests that don't care about log output.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...interface{}) {}
func (NoOpLogger) Info(msg string, args ...interface{})  {}
func (NoOpLogger) Warn(msg string, args ...interface{})  {}
func (NoOpLogger) Error(msg string, args ...interface{}) {}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	inner *slog.Logger
}

// Option configures a SlogLogger built by New.
type Option func(*config)

type config struct {
	level   slog.Level
	handler slog.Handler
}

// WithLevel sets the minimum log level ("debug", "info", "warn", "error").
// Unrecognized values are ignored and the default (info) is kept.
func WithLevel(level string) Option {
	return func(c *config) {
		switch level {
		case "debug":
			c.level = slog.LevelDebug
		case "info":
			c.level = slog.LevelInfo
		case "warn":
			c.level = slog.LevelWarn
		case "error":
			c.level = slog.LevelError
		}
	}
}

// WithJSON switches the handler to JSON output, required for the METRIC
// line and general log-shipping compatibility.
func WithJSON() Option {
	return func(c *config) {
		c.handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.level})
	}
}

// New builds a SlogLogger. Without options it defaults to info-level text
// on stdout.
func New(opts ...Option) *SlogLogger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}
	if c.handler == nil {
		c.handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: c.level})
	}
	return &SlogLogger{inner: slog.New(c.handler)}
}

func (l *SlogLogger) Debug(msg string, args ...interface{}) { l.inner.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...interface{})  { l.inner.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...interface{})  { l.inner.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...interface{}) { l.inner.Error(msg, args...) }

// Slog returns the underlying *slog.Logger for libraries that want one
// directly (the metrics emitter logs the raw METRIC line through it).
func (l *SlogLogger) Slog() *slog.Logger { return l.inner }
