package probingpt

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with table-specific event helpers.
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

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithTable tags every record with the table name.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// LogLoad logs a table load.
func (l *Logger) LogLoad(ctx context.Context, path string, sourceWords, targetWords int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "table load failed",
			"path", path,
			"duration", duration,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "table loaded",
		"path", path,
		"source_words", sourceWords,
		"target_words", targetWords,
		"duration", duration,
	)
}

// LogIntegrityViolation logs a record dropped because the index and the
// vocabulary bridge disagree.
func (l *Logger) LogIntegrityViolation(ctx context.Context, kind IntegrityViolation, spanLen int, detail any) {
	l.WarnContext(ctx, "index integrity violation",
		"kind", kind.String(),
		"span_len", spanLen,
		"detail", detail,
	)
}

// LogLookup logs a span lookup at debug level.
func (l *Logger) LogLookup(ctx context.Context, spanLen, candidates int, outcome LookupOutcome, err error) {
	if err != nil {
		l.ErrorContext(ctx, "lookup failed",
			"span_len", spanLen,
			"error", err,
		)
		return
	}
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	l.DebugContext(ctx, "lookup completed",
		"span_len", spanLen,
		"outcome", outcome.String(),
		"candidates", candidates,
	)
}
