package logging

import (
	"context"
	"log/slog"
)

// FieldInvocationID groups the lines of one bitrateviewer run inside the
// shared log file.
const FieldInvocationID = "invocation_id"

type invocationHandler struct {
	next slog.Handler
	id   string
}

func newInvocationHandler(next slog.Handler, id string) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &invocationHandler{next: next, id: id}
}

func (h *invocationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *invocationHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldInvocationID, h.id))
	return h.next.Handle(ctx, record)
}

func (h *invocationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &invocationHandler{next: h.next.WithAttrs(attrs), id: h.id}
}

func (h *invocationHandler) WithGroup(name string) slog.Handler {
	return &invocationHandler{next: h.next.WithGroup(name), id: h.id}
}
