// Package obslog builds the process's structured logger: log/slog with a
// handler chosen by whether stdout is a terminal, following the teacher's
// own use of github.com/mattn/go-isatty to decide its CLI output's color
// support (internal/evaluator/builtins_term.go).
package obslog

import (
	"context"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

// New returns a logger writing to os.Stdout at the given level. When
// stdout is a terminal, records get a colorized text handler;
// otherwise (redirected to a file, piped, running under a supervisor) a
// plain text handler, so logs stay machine-parseable off a terminal.
func New(level slog.Level) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := os.Stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		handler = newColorHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// colorHandler wraps slog.TextHandler, prefixing each record with an
// ANSI color keyed to its level. slog.Handler composition (WithAttrs/
// WithGroup delegate to the wrapped handler) keeps this a thin decorator
// rather than a from-scratch handler implementation.
type colorHandler struct {
	slog.Handler
	w *os.File
}

func newColorHandler(w *os.File, opts *slog.HandlerOptions) *colorHandler {
	return &colorHandler{Handler: slog.NewTextHandler(w, opts), w: w}
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{Handler: h.Handler.WithAttrs(attrs), w: h.w}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{Handler: h.Handler.WithGroup(name), w: h.w}
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	code := levelColor(r.Level)
	if code == "" {
		return h.Handler.Handle(ctx, r)
	}
	r.Message = code + r.Message + "\033[0m"
	return h.Handler.Handle(ctx, r)
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m"
	case l >= slog.LevelWarn:
		return "\033[33m"
	case l >= slog.LevelInfo:
		return ""
	default:
		return "\033[90m"
	}
}
