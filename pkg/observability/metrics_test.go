package observability_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/hourglass/pkg/framework"
	"github.com/Sumatoshi-tech/hourglass/pkg/observability"
)

var _ framework.Progress = (*observability.MiningMetrics)(nil)

func setupMiningMetrics(t *testing.T) (*observability.MiningMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mm, err := observability.NewMiningMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return mm, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] for %s", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestMiningMetricsProgress(t *testing.T) {
	t.Parallel()

	mm, reader := setupMiningMetrics(t)

	mm.CommitStarted()
	mm.CommitStarted()
	mm.ChangesSeen(5)
	mm.LinesCounted(12)

	metrics := collect(t, reader)

	assert.Equal(t, int64(2), sumOf(t, metrics["hourglass.mining.commits.total"]))
	assert.Equal(t, int64(5), sumOf(t, metrics["hourglass.mining.changes.total"]))
	assert.Equal(t, int64(12), sumOf(t, metrics["hourglass.mining.lines.total"]))
}

func TestMiningMetricsRecordRun(t *testing.T) {
	t.Parallel()

	mm, reader := setupMiningMetrics(t)
	ctx := context.Background()

	mm.RecordRun(ctx, time.Second, false, 0, nil)
	mm.RecordRun(ctx, 2*time.Second, true, 0, nil)
	mm.RecordRun(ctx, time.Second, false, 2, errors.New("boom"))

	metrics := collect(t, reader)

	runs, ok := metrics["hourglass.runs.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byStatus := make(map[string]int64)

	for _, dp := range runs.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsString()] += dp.Value
	}

	assert.Equal(t, map[string]int64{"ok": 1, "interrupted": 1, "error": 1}, byStatus)

	hist, ok := metrics["hourglass.run.duration.seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(3), count)
	assert.Equal(t, int64(2), sumOf(t, metrics["hourglass.mining.worker.failures.total"]))
}

func TestMiningMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var mm *observability.MiningMetrics

	mm.RecordRun(context.Background(), time.Second, false, 0, nil)
}

func TestMetricsServer(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	server, err := observability.StartMetricsServer("127.0.0.1:0", handler, nil)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+server.Addr()+"/metrics", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	require.NoError(t, server.Shutdown(context.Background()))
}
