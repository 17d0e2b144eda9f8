package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// redacted replaces identity attributes in logs of runs without PII.
const redacted = "[redacted]"

// logHandler decorates every record with the active trace and span ids and,
// unless PII is allowed, masks attributes that name an author (see
// identityKey). Service metadata is attached once at construction, before any
// group, so it stays at the top level.
type logHandler struct {
	inner slog.Handler
	pii   bool
}

// NewLogHandler wraps inner with trace correlation, the service, mode and
// environment of cfg, and identity redaction unless cfg.LogPII is set.
func NewLogHandler(inner slog.Handler, cfg Config) slog.Handler {
	meta := []slog.Attr{
		slog.String("service", cfg.ServiceName),
		slog.String("mode", string(cfg.Mode)),
	}

	if cfg.Environment != "" {
		meta = append(meta, slog.String("env", cfg.Environment))
	}

	return &logHandler{inner: inner.WithAttrs(meta), pii: cfg.LogPII}
}

func (h *logHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *logHandler) Handle(ctx context.Context, record slog.Record) error {
	out := record

	if !h.pii {
		out = slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
		record.Attrs(func(attr slog.Attr) bool {
			out.AddAttrs(h.mask(attr))

			return true
		})
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	err := h.inner.Handle(ctx, out)
	if err != nil {
		return fmt.Errorf("log handler: %w", err)
	}

	return nil
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.mask(attr)
	}

	return &logHandler{inner: h.inner.WithAttrs(masked), pii: h.pii}
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	return &logHandler{inner: h.inner.WithGroup(name), pii: h.pii}
}

// mask redacts identity attributes, descending into groups.
func (h *logHandler) mask(attr slog.Attr) slog.Attr {
	if h.pii {
		return attr
	}

	if identityKey(attr.Key) {
		return slog.String(attr.Key, redacted)
	}

	value := attr.Value.Resolve()
	if value.Kind() != slog.KindGroup {
		return attr
	}

	group := value.Group()
	masked := make([]any, len(group))

	for i, member := range group {
		masked[i] = h.mask(member)
	}

	return slog.Group(attr.Key, masked...)
}
