package diag

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json", slog.LevelDebug)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.WithRun("exp-001").LogCompile(context.Background(), 3, 2, 5, nil)
	out := buf.String()
	if !strings.Contains(out, `"run":"exp-001"`) || !strings.Contains(out, `"segments":2`) {
		t.Errorf("unexpected json record: %s", out)
	}

	if _, err := New(&buf, "xml", slog.LevelInfo); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "text", slog.LevelInfo)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.LogWrite(context.Background(), "segdata_CLBLL.txt", 4, nil)
	if buf.Len() != 0 {
		t.Errorf("debug record should be filtered: %s", buf.String())
	}
	l.LogWrite(context.Background(), "segdata_CLBLL.txt", 0, errors.New("disk full"))
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("error record missing: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("ParseLevel(debug) = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("noop logger should not be enabled")
	}
}
