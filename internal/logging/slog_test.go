package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func newCaptureLogger(buf *bytes.Buffer) *SlogLogger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h))
}

func TestSlogLogger_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newCaptureLogger(&buf)
	ctx := context.Background()

	log.Debug(ctx, "d")
	log.Info(ctx, "i")
	log.Warn(ctx, "w")
	log.Error(ctx, "e")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(lines))
	}
}

func TestSlogLogger_With(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newCaptureLogger(&buf)

	child := log.With("module", "test")
	child.Info(context.Background(), "hello")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("invalid log JSON: %v", err)
	}
	if rec["module"] != "test" {
		t.Fatalf("expected module attr, got %v", rec)
	}
}
