// Package testutil provides logging helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug level logger writing through t.Log, so
// output shows up only for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type tWriter struct {
	t testing.TB
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// Record is one captured log call.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogCapture collects log records for assertions. It is safe for
// concurrent use.
type LogCapture struct {
	mu      sync.Mutex
	records []Record
}

// Records returns a copy of everything logged so far.
func (c *LogCapture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Messages returns the messages logged at level or above.
func (c *LogCapture) Messages(level slog.Level) []string {
	var out []string
	for _, r := range c.Records() {
		if r.Level >= level {
			out = append(out, r.Message)
		}
	}
	return out
}

// Find returns the first record with message msg.
func (c *LogCapture) Find(msg string) (Record, bool) {
	for _, r := range c.Records() {
		if r.Message == msg {
			return r, true
		}
	}
	return Record{}, false
}

// NewCaptureLogger returns a debug level logger whose records end up both
// in the returned capture and in t.Log.
func NewCaptureLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	t.Helper()
	c := &LogCapture{}
	h := &captureHandler{capture: c, next: NewTestLogger(t).Handler()}
	return slog.New(h), c
}

type captureHandler struct {
	capture *LogCapture
	attrs   []slog.Attr
	next    slog.Handler
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := Record{Level: r.Level, Message: r.Message, Attrs: make(map[string]string)}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.String()
		return true
	})

	h.capture.mu.Lock()
	h.capture.records = append(h.capture.records, rec)
	h.capture.mu.Unlock()

	return h.next.Handle(ctx, r)
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{
		capture: h.capture,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
		next:    h.next.WithAttrs(attrs),
	}
}

// WithGroup only forwards the group; captured attribute keys stay flat.
func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{capture: h.capture, attrs: h.attrs, next: h.next.WithGroup(name)}
}
