package gofaiss

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the structured logger shared by a Runtime and every handle it
// creates. Field names are stable: kind, ptr, children, n, from, to, error.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler. A nil handler logs text at info level to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		return NewTextLogger(slog.LevelInfo)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger logs JSON records at or above level to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger logs key=value records at or above level to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger drops everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// WithKind returns a child logger tagged with a handle kind.
func (l *Logger) WithKind(kind string) *Logger {
	return &Logger{Logger: l.With("kind", kind)}
}

// outcome logs msg+" failed" at error level when err is set, and
// msg+" "+done at ok level otherwise.
func (l *Logger) outcome(ctx context.Context, ok slog.Level, msg, done string, err error, attrs ...any) {
	if err != nil {
		l.Log(ctx, slog.LevelError, msg+" failed", append(attrs, "error", err)...)
		return
	}
	l.Log(ctx, ok, msg+" "+done, attrs...)
}

// LogLoad records the outcome of loading the native library.
func (l *Logger) LogLoad(ctx context.Context, path string, err error) {
	l.outcome(ctx, slog.LevelInfo, "native library", "loaded", err, "path", path)
}

// LogCompose records the construction of a composite index.
func (l *Logger) LogCompose(ctx context.Context, kind string, children int, err error) {
	l.outcome(ctx, slog.LevelDebug, "compose", "completed", err, "kind", kind, "children", children)
}

// LogCast records a cast between handle kinds. Rejected casts are expected
// control flow, so they stay at debug level.
func (l *Logger) LogCast(ctx context.Context, from, to string, err error) {
	if err != nil {
		l.DebugContext(ctx, "cast rejected", "from", from, "to", to, "error", err)
		return
	}
	l.DebugContext(ctx, "cast completed", "from", from, "to", to)
}

// LogClone records a deep copy.
func (l *Logger) LogClone(ctx context.Context, kind string, err error) {
	l.outcome(ctx, slog.LevelDebug, "clone", "completed", err, "kind", kind)
}

// LogOperation records a train, add, search or reset call over n vectors.
func (l *Logger) LogOperation(ctx context.Context, op, kind string, n int, err error) {
	l.outcome(ctx, slog.LevelDebug, op, "completed", err, "kind", kind, "n", n)
}

// LogFree records the release of a native object.
func (l *Logger) LogFree(ctx context.Context, kind string, ptr uintptr) {
	l.DebugContext(ctx, "native object freed", "kind", kind, "ptr", ptr)
}

// LogLeak records a native object reclaimed by the garbage collector
// instead of Close.
func (l *Logger) LogLeak(ctx context.Context, kind string, ptr uintptr) {
	l.WarnContext(ctx, "handle was not closed; freeing native object", "kind", kind, "ptr", ptr)
}

// LogNonOwning records a composite whose native ownership flag is off.
// Freeing such a composite does not free its children.
func (l *Logger) LogNonOwning(ctx context.Context, kind string) {
	l.WarnContext(ctx, "composite does not own its children", "kind", kind)
}
