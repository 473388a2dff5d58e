package filesort

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with filesort-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
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

// WithJob adds a job field to the logger.
func (l *Logger) WithJob(job string) *Logger {
	return &Logger{
		Logger: l.Logger.With("job", job),
	}
}

// LogSplit logs a split phase.
func (l *Logger) LogSplit(ctx context.Context, runs int, records, malformed int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "split failed",
			"runs", runs,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "split completed",
		"runs", runs,
		"records", records,
		"malformed", malformed,
	)
}

// LogMerge logs a merge phase.
func (l *Logger) LogMerge(ctx context.Context, runs int, records int64, passes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"runs", runs,
			"records", records,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "merge completed",
		"runs", runs,
		"records", records,
		"passes", passes,
	)
}

// LogMalformed logs a line whose key could not be parsed.
func (l *Logger) LogMalformed(line string, err error) {
	l.Warn("malformed record", "line", line, "error", err)
}

// LogDiscard logs the deletion of runs.
func (l *Logger) LogDiscard(ctx context.Context, runs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "discard failed",
			"runs", runs,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "runs discarded",
		"runs", runs,
	)
}

// LogCleanup logs the removal of runs left behind by earlier sorts.
func (l *Logger) LogCleanup(ctx context.Context, deleted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cleanup failed",
			"deleted", deleted,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cleanup completed",
		"deleted", deleted,
	)
}
