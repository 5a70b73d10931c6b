// Package testutil provides logging helpers for tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes through t.Log, so
// output only shows for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// LogRecorder captures log output for assertions while still echoing it to
// the test log.
type LogRecorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
	t   testing.TB
}

// NewLogRecorder returns a recorder and a debug-level logger writing to it.
func NewLogRecorder(t testing.TB) (*LogRecorder, *slog.Logger) {
	t.Helper()
	rec := &LogRecorder{t: t}
	return rec, slog.New(slog.NewTextHandler(rec, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func (r *LogRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Log(strings.TrimRight(string(p), "\n"))
	return r.buf.Write(p)
}

// String returns everything logged so far.
func (r *LogRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Contains reports whether any logged line contains s.
func (r *LogRecorder) Contains(s string) bool {
	return strings.Contains(r.String(), s)
}

type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
