// Package framework runs tree diff workers over a repository's commits and
// collects per-commit change statistics.
package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/plumbing"
)

const tracerName = "hourglass/framework"

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("distributor closed")

// Options carries the observers of a Distributor.
type Options struct {
	// Progress receives mining events. Nil means no observer.
	Progress Progress

	// Logger is the structured logger. When nil, a discard logger is used.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Distributor spreads work items over a fixed pool of tree diff workers.
// Each worker has its own repository handle and goroutine locked to an OS
// thread. Submit batches, then Close, then Wait.
type Distributor struct {
	queue   *batchQueue
	workers []*treeDiffWorker
	results [][]plumbing.CommitStat
	errs    []error
	wg      sync.WaitGroup
	stop    func() bool
	span    trace.Span
	logger  *slog.Logger
}

// NewDistributor opens one repository handle per worker and starts the
// workers. Cancelling ctx makes every worker return its partial results.
func NewDistributor(ctx context.Context, repo *gitlib.Repository, cfg Config, opts Options) (*Distributor, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}

	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}

	logger := opts.logger()

	workers := make([]*treeDiffWorker, 0, cfg.Workers)

	for id := range cfg.Workers {
		handle, cloneErr := repo.Clone()
		if cloneErr != nil {
			for _, opened := range workers {
				opened.repo.Free()
			}

			return nil, fmt.Errorf("open repository for worker %d: %w", id, cloneErr)
		}

		workers = append(workers, &treeDiffWorker{
			id:        id,
			repo:      handle,
			lineStats: cfg.LineStats,
			cacheSize: cfg.PerWorkerCacheSize(),
			progress:  progress,
			logger:    logger,
		})
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "hourglass.mine",
		trace.WithAttributes(
			attribute.Int("mine.workers", cfg.Workers),
			attribute.Bool("mine.line_stats", cfg.LineStats),
			attribute.Int64("mine.object_cache_bytes", cfg.ObjectCacheSize),
		))

	queue := newBatchQueue()

	d := &Distributor{
		queue:   queue,
		workers: workers,
		results: make([][]plumbing.CommitStat, len(workers)),
		errs:    make([]error, len(workers)),
		stop:    context.AfterFunc(ctx, queue.close),
		span:    span,
		logger:  logger,
	}

	for i, worker := range workers {
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer worker.repo.Free()

			d.results[i], d.errs[i] = worker.run(ctx, queue)
			if d.errs[i] != nil {
				logger.ErrorContext(ctx, "tree diff worker failed", "worker", worker.id, "error", d.errs[i])
			}
		}()
	}

	logger.DebugContext(ctx, "tree diff workers started",
		"workers", cfg.Workers, "line_stats", cfg.LineStats, "cache_per_worker", cfg.PerWorkerCacheSize())

	return d, nil
}

// Submit queues a batch for the workers. It never blocks.
func (d *Distributor) Submit(batch []WorkItem) error {
	if len(batch) == 0 {
		return nil
	}

	if !d.queue.push(batch) {
		return ErrClosed
	}

	return nil
}

// Close ends submission. Workers drain what is queued and exit.
func (d *Distributor) Close() {
	d.queue.close()
}

// Interrupted reports whether cancellation stopped a worker before the queue
// was drained. Valid after Wait.
func (d *Distributor) Interrupted() bool {
	for _, worker := range d.workers {
		if worker.interrupted {
			return true
		}
	}

	return false
}

// Wait closes the distributor, joins all workers and returns each worker's
// stats. Stats are not ordered across workers. The error joins the
// WorkerError of every failed worker; the other workers' stats are intact.
func (d *Distributor) Wait() ([][]plumbing.CommitStat, error) {
	d.Close()
	d.wg.Wait()
	d.stop()

	err := errors.Join(d.errs...)

	total := 0
	for _, stats := range d.results {
		total += len(stats)
	}

	d.span.SetAttributes(attribute.Int("mine.commits", total))

	if err != nil {
		d.span.RecordError(err)
	}

	d.span.End()

	return d.results, err
}

// Mine submits items in batches, waits, and returns all stats sorted by index.
// interrupted is true when cancellation left some items unmined; a
// cancellation arriving after the last item was taken does not count.
func Mine(
	ctx context.Context, repo *gitlib.Repository, cfg Config, opts Options, items []WorkItem,
) (stats []plumbing.CommitStat, interrupted bool, err error) {
	cfg, err = cfg.normalized()
	if err != nil {
		return nil, false, err
	}

	distributor, err := NewDistributor(ctx, repo, cfg, opts)
	if err != nil {
		return nil, false, err
	}

	for batch := range slices.Chunk(items, cfg.BatchSize) {
		// Cancelling ctx closes the queue.
		if errors.Is(distributor.Submit(batch), ErrClosed) {
			interrupted = true

			break
		}
	}

	perWorker, err := distributor.Wait()

	for _, workerStats := range perWorker {
		stats = append(stats, workerStats...)
	}

	plumbing.SortByIndex(stats)

	return stats, interrupted || distributor.Interrupted(), err
}
