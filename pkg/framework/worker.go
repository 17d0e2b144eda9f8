package framework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/plumbing"
	"github.com/Sumatoshi-tech/hourglass/pkg/safeconv"
)

// WorkItem is one commit to diff against its first parent. A nil Parent
// marks a root commit, which is diffed against the empty tree.
type WorkItem struct {
	Index  uint32
	Parent *gitlib.Hash
	Commit gitlib.Hash
}

// WorkerError reports the failure that stopped one worker.
type WorkerError struct {
	Worker int
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// WorkerFailures counts the WorkerErrors in err, following wrapped and
// joined errors.
func WorkerFailures(err error) int {
	switch e := err.(type) { //nolint:errorlint // walks the tree itself.
	case nil:
		return 0
	case *WorkerError:
		return 1
	case interface{ Unwrap() []error }:
		n := 0
		for _, inner := range e.Unwrap() {
			n += WorkerFailures(inner)
		}

		return n
	}

	return WorkerFailures(errors.Unwrap(err))
}

// treeDiffWorker turns work items into commit stats with its own repository
// handle. It is driven by exactly one goroutine.
type treeDiffWorker struct {
	id        int
	repo      *gitlib.Repository
	lineStats bool
	cacheSize int64
	progress  Progress
	logger    *slog.Logger

	arena *diffArena

	// interrupted is set when cancellation left queued items unprocessed.
	interrupted bool
}

// run drains queue until it is closed or ctx is cancelled. Cancellation is
// not an error: the stats gathered so far are returned and, if an item was
// left undone, interrupted is set.
func (w *treeDiffWorker) run(ctx context.Context, queue *batchQueue) ([]plumbing.CommitStat, error) {
	if w.lineStats {
		w.arena = newDiffArena(w.cacheSize)
		defer func() {
			w.logger.DebugContext(ctx, "worker object cache", "worker", w.id, "hit_rate", w.arena.stats().HitRate())
			w.arena.release()
			w.arena = nil
		}()
	}

	var out []plumbing.CommitStat

	for {
		batch, ok := queue.pop()
		if !ok {
			return out, nil
		}

		for _, item := range batch {
			if ctx.Err() != nil {
				w.interrupted = true

				return out, nil
			}

			w.progress.CommitStarted()

			stat, processed, err := w.process(ctx, item)
			if err != nil {
				return out, &WorkerError{Worker: w.id, Err: err}
			}

			if processed {
				out = append(out, stat)
			}
		}
	}
}

// process diffs one commit. processed is false when either tree cannot be resolved.
func (w *treeDiffWorker) process(ctx context.Context, item WorkItem) (stat plumbing.CommitStat, processed bool, err error) {
	if w.arena != nil {
		w.arena.reset()
	}

	from := w.repo.EmptyTree()

	if item.Parent != nil {
		parent, parentErr := w.repo.PeelToTree(*item.Parent)
		if parentErr != nil {
			w.logger.DebugContext(ctx, "skipping commit with unresolvable parent",
				"worker", w.id, "commit", item.Commit.String(), "error", parentErr)

			return stat, false, nil
		}
		defer parent.Free()

		from = parent
	}

	to, err := w.repo.PeelToTree(item.Commit)
	if err != nil {
		w.logger.DebugContext(ctx, "skipping unresolvable commit",
			"worker", w.id, "commit", item.Commit.String(), "error", err)

		return stat, false, nil
	}
	defer to.Free()

	stat.Index = item.Index
	changes := 0

	err = w.repo.ForEachChange(from, to, func(change *gitlib.Change) error {
		changes++

		return w.classify(change, &stat)
	})

	w.progress.ChangesSeen(changes)

	if err != nil {
		return stat, false, fmt.Errorf("diff %s: %w", item.Commit, err)
	}

	return stat, true, nil
}

// classify counts one change by whether each side is a blob.
func (w *treeDiffWorker) classify(change *gitlib.Change, stat *plumbing.CommitStat) error {
	switch change.Action {
	case gitlib.Insert:
		if change.To.Mode.IsNoTree() {
			stat.Files.Added++
			stat.Lines.Added += w.countLines(change.To.Hash)
		}
	case gitlib.Delete:
		if change.From.Mode.IsNoTree() {
			stat.Files.Removed++
			stat.Lines.Removed += w.countLines(change.From.Hash)
		}
	case gitlib.Modify:
		wasBlob, isBlob := change.From.Mode.IsBlob(), change.To.Mode.IsBlob()

		switch {
		case !wasBlob && isBlob:
			stat.Files.Added++
			stat.Lines.Added += w.countLines(change.To.Hash)
		case wasBlob && !isBlob:
			stat.Files.Removed++
			stat.Lines.Removed += w.countLines(change.From.Hash)
		case wasBlob && isBlob:
			stat.Files.Modified++

			return w.diffLines(change, stat)
		}
	}

	return nil
}

// countLines returns the line count of a whole blob. Unreadable objects count
// as zero lines.
func (w *treeDiffWorker) countLines(hash gitlib.Hash) uint32 {
	if w.arena == nil {
		return 0
	}

	data, err := w.arena.blob(w.repo, hash)
	if err != nil {
		return 0
	}

	lines := gitlib.CountLines(data)
	w.progress.LinesCounted(lines)

	return safeconv.SaturatingUint32(lines)
}

// diffLines adds the inserted and deleted lines of a blob modification.
// Unlike whole-blob counting, a missing blob here is a failure.
func (w *treeDiffWorker) diffLines(change *gitlib.Change, stat *plumbing.CommitStat) error {
	if w.arena == nil {
		return nil
	}

	before, err := w.arena.blob(w.repo, change.From.Hash)
	if err != nil {
		return fmt.Errorf("load %s: %w", change.From.Name, err)
	}

	after, err := w.arena.blob(w.repo, change.To.Hash)
	if err != nil {
		return fmt.Errorf("load %s: %w", change.To.Name, err)
	}

	insertions, deletions, ok := w.arena.lineDiff(before, after)
	if !ok {
		return nil
	}

	stat.Lines.Added += safeconv.SaturatingUint32(insertions)
	stat.Lines.Removed += safeconv.SaturatingUint32(deletions)
	w.progress.LinesCounted(insertions + deletions)

	return nil
}
