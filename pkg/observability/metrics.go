package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsTotal   = "hourglass.mining.commits.total"
	metricChangesTotal   = "hourglass.mining.changes.total"
	metricLinesTotal     = "hourglass.mining.lines.total"
	metricRunsTotal      = "hourglass.runs.total"
	metricRunDuration    = "hourglass.run.duration.seconds"
	metricWorkerFailures = "hourglass.mining.worker.failures.total"

	attrStatus = "status"

	statusOK          = "ok"
	statusError       = "error"
	statusInterrupted = "interrupted"
)

// durationBucketBoundaries covers 10ms to 600s, from tiny repositories to
// line-stat runs over long histories.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// metricBuilder accumulates instrument creation errors so a set of
// instruments needs a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// MiningMetrics holds the instruments of a mining run. It doubles as a
// mining progress observer and is safe for concurrent use.
type MiningMetrics struct {
	commits        metric.Int64Counter
	changes        metric.Int64Counter
	lines          metric.Int64Counter
	runs           metric.Int64Counter
	runDuration    metric.Float64Histogram
	workerFailures metric.Int64Counter
}

// NewMiningMetrics creates the mining instruments from mt.
func NewMiningMetrics(mt metric.Meter) (*MiningMetrics, error) {
	b := newMetricBuilder(mt)

	mm := &MiningMetrics{
		commits:        b.counter(metricCommitsTotal, "Commits whose tree diff was started", "{commit}"),
		changes:        b.counter(metricChangesTotal, "Tree entry changes seen", "{change}"),
		lines:          b.counter(metricLinesTotal, "Added plus removed lines counted", "{line}"),
		runs:           b.counter(metricRunsTotal, "Completed runs by status", "{run}"),
		runDuration:    b.histogram(metricRunDuration, "Run duration in seconds", "s", durationBucketBoundaries...),
		workerFailures: b.counter(metricWorkerFailures, "Mining workers that stopped with an error", "{worker}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return mm, nil
}

// CommitStarted counts a commit.
func (mm *MiningMetrics) CommitStarted() {
	mm.commits.Add(context.Background(), 1)
}

// ChangesSeen counts tree changes.
func (mm *MiningMetrics) ChangesSeen(n int) {
	mm.changes.Add(context.Background(), int64(n))
}

// LinesCounted counts added plus removed lines.
func (mm *MiningMetrics) LinesCounted(n int) {
	mm.lines.Add(context.Background(), int64(n))
}

// RecordRun records the outcome of a run. workerFailures is the number of
// workers that failed. Safe on a nil receiver.
func (mm *MiningMetrics) RecordRun(ctx context.Context, elapsed time.Duration, interrupted bool, workerFailures int, err error) {
	if mm == nil {
		return
	}

	status := statusOK

	switch {
	case err != nil:
		status = statusError
	case interrupted:
		status = statusInterrupted
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	mm.runs.Add(ctx, 1, attrs)
	mm.runDuration.Record(ctx, elapsed.Seconds(), attrs)

	if workerFailures > 0 {
		mm.workerFailures.Add(ctx, int64(workerFailures))
	}
}
