package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/hourglass/pkg/observability"
)

func exportSpan(t *testing.T, attrs ...attribute.KeyValue) map[string]any {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	out := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}

	return out
}

func TestAttributeFilterAllowsKnownKeys(t *testing.T) {
	t.Parallel()

	attrs := exportSpan(t,
		attribute.Int("mine.workers", 4),
		attribute.Int("run.authors", 2),
		attribute.String("error.type", "timeout"),
	)

	assert.Equal(t, int64(4), attrs["mine.workers"])
	assert.Equal(t, int64(2), attrs["run.authors"])
	assert.Equal(t, "timeout", attrs["error.type"])
}

func TestAttributeFilterBlocksIdentities(t *testing.T) {
	t.Parallel()

	attrs := exportSpan(t,
		attribute.String("author.email", "jane@example.com"),
		attribute.String("author.name", "Jane"),
		attribute.String("email", "bob@example.com"),
		attribute.String("user.id", "42"),
		attribute.String("something.else", "x"),
		attribute.Bool("mine.line_stats", true),
	)

	assert.Equal(t, map[string]any{"mine.line_stats": true}, attrs)
}
