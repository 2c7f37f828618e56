package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}

func TestSlogLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.New(slog.NewJSONHandler(&buf, nil))
	l := &SlogLogger{inner: inner}

	l.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Fatalf("expected JSON log with msg field, got: %s", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Fatalf("expected attribute in output, got: %s", out)
	}
}

func TestWithLevelFiltersBelowThreshold(t *testing.T) {
	l := New(WithLevel("error"))
	if !l.Slog().Handler().Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("expected error level enabled")
	}
	if l.Slog().Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("expected info level filtered out below the error threshold")
	}
}
