package archidb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with archidb-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithURL adds a url field to the logger.
func (l *Logger) WithURL(url string) *Logger {
	return &Logger{Logger: l.Logger.With("url", url)}
}

// WithMode adds an engine mode field to the logger.
func (l *Logger) WithMode(mode Mode) *Logger {
	return &Logger{Logger: l.Logger.With("mode", mode.String())}
}

// LogInitialize logs the outcome of an initialization attempt.
func (l *Logger) LogInitialize(ctx context.Context, mode Mode, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "initialization failed",
			"mode", mode.String(),
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "database ready",
			"mode", mode.String(),
			"duration", duration,
		)
	}
}

// LogFallback logs the chunked loader failure that triggers the direct path.
// The hint attribute carries the user-facing text the UI shows while the
// full download runs.
func (l *Logger) LogFallback(ctx context.Context, err error) {
	l.WarnContext(ctx, "chunked loader failed, falling back to direct download",
		"kind", KindOf(err).String(),
		"error", err,
		"hint", hintFallback,
	)
}

// LogDownload logs a completed full-file download.
func (l *Logger) LogDownload(ctx context.Context, bytes int64, duration time.Duration) {
	l.InfoContext(ctx, "database downloaded",
		"bytes", bytes,
		"duration", duration,
	)
}

// LogQuery logs a query execution at debug level.
func (l *Logger) LogQuery(ctx context.Context, rows int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"rows", rows,
			"duration", duration,
		)
	}
}
