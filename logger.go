package geoprefix

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with geoprefix-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithSegment adds a segment field to the logger.
func (l *Logger) WithSegment(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", name),
	}
}

// LogOpen logs opening an index.
func (l *Logger) LogOpen(ctx context.Context, generation uint64, segments int, grid string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index opened",
		"generation", generation,
		"segments", segments,
		"grid", grid,
	)
}

// LogSegmentLoad logs loading a segment from the blob store.
func (l *Logger) LogSegmentLoad(ctx context.Context, name string, bytes int, maxDoc uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "segment load failed",
			"segment", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "segment loaded",
		"segment", name,
		"bytes", bytes,
		"max_doc", maxDoc,
	)
}

// LogCommit logs a commit.
func (l *Logger) LogCommit(ctx context.Context, generation uint64, added, deleted int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"added", added,
			"deleted", deleted,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "commit completed",
		"generation", generation,
		"added", added,
		"deleted", deleted,
		"took", took,
	)
}

// LogSearch logs a search.
func (l *Logger) LogSearch(ctx context.Context, op string, hits int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"operation", op,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"operation", op,
		"hits", hits,
		"took", took,
	)
}
