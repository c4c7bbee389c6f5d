// Package log is the structured logger used across the server.
//
// Records are written by log/slog (JSON or logfmt) and enriched with the
// OpenTelemetry trace and span of the context, a stack at or above a
// configurable level, and the error chain built by internal/xerrors.
// Attributes whose key names a credential are redacted.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger takes the request context on every call so trace ids can be
// attached to the record.
type Logger interface {
	With(kv ...any) Logger

	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, err error, msg string, kv ...any)

	Sync() error
}

type Options struct {
	App     string
	Version string
	Commit  string

	Level slog.Level
	// StacktraceLevel is the lowest level that gets a stack; zero means error.
	StacktraceLevel slog.Level
	JsonFormat      bool

	// IncludeErrorLinks adds one func/file/line entry per wrap in the chain,
	// at most MaxErrorLinks (default 8).
	IncludeErrorLinks bool
	MaxErrorLinks     int

	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// New builds the slog-backed Logger.
func New(opts Options) (Logger, error) { return newSlog(opts) }

// ParseLevel maps debug|info|warn|error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (valid levels are debug|info|warn|error)", s)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any)        {}
func (nopLogger) Info(context.Context, string, ...any)         {}
func (nopLogger) Warn(context.Context, string, ...any)         {}
func (nopLogger) Error(context.Context, error, string, ...any) {}
func (nopLogger) Sync() error                                  { return nil }
func (n nopLogger) With(...any) Logger                         { return n }

// Nop returns a Logger that discards everything. Used in tests and as the
// fallback for contexts without a logger.
func Nop() Logger { return nopLogger{} }
