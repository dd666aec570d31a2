package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/forest6511/credsafe/pkg/lockout"
)

// teeHandler sends every record to each handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: hs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: hs}
}

// newLogger writes Info and above into the event log, plus warnings to
// stderr. verbose lowers both to Debug. log may be nil.
func newLogger(log *lockout.Log, stderr io.Writer, verbose bool) *slog.Logger {
	fileLevel, termLevel := slog.LevelInfo, slog.LevelWarn
	if verbose {
		fileLevel, termLevel = slog.LevelDebug, slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: termLevel}),
	}
	if log != nil {
		handlers = append(handlers, lockout.NewHandler(log, fileLevel))
	}
	return slog.New(&teeHandler{handlers: handlers})
}
