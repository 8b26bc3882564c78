package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		" INFO ": slog.LevelInfo,
		"Warn":   slog.LevelWarn,
		"error":  slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// --- context ---

func TestFromContext_DefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	if _, ok := l.(nopLogger); !ok {
		t.Fatalf("FromContext without logger = %T, want nopLogger", l)
	}
}

func TestWithContext_RoundTrip(t *testing.T) {
	l, err := New(Options{App: "blog"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("FromContext should return the stored logger")
	}
}

func TestNop_IsSafe(t *testing.T) {
	n := Nop()
	ctx := context.Background()
	n.Debug(ctx, "d")
	n.Info(ctx, "i", "k", "v")
	n.Warn(ctx, "w")
	n.Error(ctx, nil, "e")
	if n.With("a", 1) == nil {
		t.Fatal("With should return a logger")
	}
	if err := n.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
