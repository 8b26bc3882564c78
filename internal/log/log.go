// Package log is the structured logger used across the server. It wraps
// log/slog and enriches records with trace ids, error chains and stacks.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is the logging surface handed to every component. Errors are
// passed separately from key/value pairs so they can be enriched.
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
	Level   slog.Level
	// records at or above this level get a "stack" attribute; zero means error
	StacktraceLevel   slog.Level
	JSON              bool
	IncludeErrorLinks bool
	MaxErrorLinks     int
	// defaults to stdout
	Writer io.Writer
}

func New(opts Options) (Logger, error) { return newSlog(opts) }

// ParseLevel maps debug|info|warn|error (any case, surrounding space ignored) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (valid levels are debug|info|warn|error)", s)
}
