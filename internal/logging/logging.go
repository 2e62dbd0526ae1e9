// Package logging provides subsystem-scoped structured logging on top of
// log/slog.
//
// Call Init once at startup, then obtain a logger per subsystem:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	log := logging.For("Matrix")
//	log.Info("generated cases", "behavior", b.Name, "count", m.Len())
//
// Inside tests, NewTestLogger routes records to t.Log so diagnostics show up
// next to the test that produced them.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy the fmt.Stringer interface.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// SlogLevel converts l to the equivalent slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a level name. The empty string means LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

var (
	mu   sync.RWMutex
	root = slog.Default()
)

// Init installs a text handler writing to out at the given level and makes it
// the slog default.
func Init(level Level, out io.Writer) {
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level.SlogLevel()}))

	mu.Lock()
	root = logger
	mu.Unlock()

	slog.SetDefault(logger)
}

// For returns a logger tagged with the given subsystem.
func For(subsystem string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With("subsystem", subsystem)
}

// testWriter forwards handler output to t.Log, one call per record.
type testWriter struct {
	tb testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewTestLogger returns a debug-level logger that writes through tb.Log.
func NewTestLogger(tb testing.TB, subsystem string) *slog.Logger {
	return NewTestLoggerAt(tb, subsystem, LevelDebug)
}

// NewTestLoggerAt is NewTestLogger with a minimum level.
func NewTestLoggerAt(tb testing.TB, subsystem string, level Level) *slog.Logger {
	h := slog.NewTextHandler(testWriter{tb: tb}, &slog.HandlerOptions{Level: level.SlogLevel()})
	return slog.New(h).With("subsystem", subsystem)
}
