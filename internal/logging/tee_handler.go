package logging

import (
	"context"
	"log/slog"
	"slices"
)

// teeHandler sends each record to every output, normally the console and the
// rotating log file. Outputs keep their own levels, so a debug file can sit
// behind an info console.
type teeHandler struct {
	outputs []slog.Handler
}

// newTeeHandler drops nil outputs. With nothing left it discards records, and
// a single output is returned as is.
func newTeeHandler(outputs ...slog.Handler) slog.Handler {
	outputs = slices.DeleteFunc(slices.Clone(outputs), func(h slog.Handler) bool { return h == nil })
	switch len(outputs) {
	case 0:
		return NoopHandler{}
	case 1:
		return outputs[0]
	}
	return &teeHandler{outputs: outputs}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.outputs, func(out slog.Handler) bool {
		return out.Enabled(ctx, level)
	})
}

// Handle reports the first output error but still writes to the rest.
func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, out := range h.outputs {
		if !out.Enabled(ctx, record.Level) {
			continue
		}
		if err := out.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(out slog.Handler) slog.Handler { return out.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(out slog.Handler) slog.Handler { return out.WithGroup(name) })
}

func (h *teeHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := &teeHandler{outputs: make([]slog.Handler, len(h.outputs))}
	for i, out := range h.outputs {
		next.outputs[i] = fn(out)
	}
	return next
}
