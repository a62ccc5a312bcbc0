// Package diag provides the structured logger shared by the recorder and the
// command line tools.
package diag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with recorder-specific helpers so that field
// names stay consistent across packages.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// New creates a Logger writing to w in the given format ("text" or "json").
func New(w io.Writer, format string, level slog.Level) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("diag: unknown log format %q", format)
	}
}

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("diag: %w", err)
	}
	return level, nil
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithRun tags every record with the experiment the recorder belongs to.
func (l *Logger) WithRun(run string) *Logger {
	return &Logger{Logger: l.Logger.With("run", run)}
}

// LogLoad logs the loading of an input file.
func (l *Logger) LogLoad(ctx context.Context, kind, path string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"kind", kind,
			"path", path,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "loaded",
		"kind", kind,
		"path", path,
		"count", count,
	)
}

// LogCompile logs the outcome of a compile pass.
func (l *Logger) LogCompile(ctx context.Context, tiles, segments, tags int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compile failed",
			"tiles", tiles,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "compile completed",
		"tiles", tiles,
		"segments", segments,
		"tags", tags,
	)
}

// LogWrite logs one written segment stream.
func (l *Logger) LogWrite(ctx context.Context, name string, segments int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "segments written",
		"name", name,
		"segments", segments,
	)
}
