// Package testutil provides test utilities for structured logging.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// LogRecorder keeps the messages of every record logged through it, so
// tests can assert that a retry, clamp or fallback was taken.
type LogRecorder struct {
	next slog.Handler

	mu       *sync.Mutex
	messages *[]string
}

// NewLogRecorder returns a logger that records messages and also writes
// them to t.Log().
func NewLogRecorder(t testing.TB) (*slog.Logger, *LogRecorder) {
	t.Helper()
	rec := &LogRecorder{
		next:     NewTestLogger(t).Handler(),
		mu:       &sync.Mutex{},
		messages: &[]string{},
	}
	return slog.New(rec), rec
}

// Enabled implements slog.Handler.
func (r *LogRecorder) Enabled(ctx context.Context, level slog.Level) bool {
	return r.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(ctx context.Context, rec slog.Record) error {
	r.mu.Lock()
	*r.messages = append(*r.messages, rec.Message)
	r.mu.Unlock()
	return r.next.Handle(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogRecorder{next: r.next.WithAttrs(attrs), mu: r.mu, messages: r.messages}
}

// WithGroup implements slog.Handler.
func (r *LogRecorder) WithGroup(name string) slog.Handler {
	return &LogRecorder{next: r.next.WithGroup(name), mu: r.mu, messages: r.messages}
}

// Messages returns the recorded messages in order.
func (r *LogRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), *r.messages...)
}
