package framework

import (
	"sync/atomic"
)

// Progress observes mining as it happens. Calls arrive concurrently from all
// workers; implementations must be safe for concurrent use.
type Progress interface {
	// CommitStarted is called once per work item, before it is diffed.
	CommitStarted()
	// ChangesSeen reports tree changes found in one commit.
	ChangesSeen(n int)
	// LinesCounted reports added plus removed lines counted in one file.
	LinesCounted(n int)
}

// NopProgress ignores all events.
type NopProgress struct{}

// CommitStarted implements Progress.
func (NopProgress) CommitStarted() {}

// ChangesSeen implements Progress.
func (NopProgress) ChangesSeen(int) {}

// LinesCounted implements Progress.
func (NopProgress) LinesCounted(int) {}

// Counters is a Progress keeping monotonically increasing totals.
type Counters struct {
	commits atomic.Int64
	changes atomic.Int64
	lines   atomic.Int64
}

// CommitStarted implements Progress.
func (c *Counters) CommitStarted() { c.commits.Add(1) }

// ChangesSeen implements Progress.
func (c *Counters) ChangesSeen(n int) { c.changes.Add(int64(n)) }

// LinesCounted implements Progress.
func (c *Counters) LinesCounted(n int) { c.lines.Add(int64(n)) }

// Commits returns the number of commits started.
func (c *Counters) Commits() int64 { return c.commits.Load() }

// Changes returns the number of tree changes seen.
func (c *Counters) Changes() int64 { return c.changes.Load() }

// Lines returns the number of lines counted.
func (c *Counters) Lines() int64 { return c.lines.Load() }

// multiProgress fans events out to several observers.
type multiProgress []Progress

// MultiProgress returns a Progress forwarding every event to each non-nil observer.
func MultiProgress(observers ...Progress) Progress {
	out := make(multiProgress, 0, len(observers))

	for _, observer := range observers {
		if observer != nil {
			out = append(out, observer)
		}
	}

	if len(out) == 0 {
		return NopProgress{}
	}

	if len(out) == 1 {
		return out[0]
	}

	return out
}

func (m multiProgress) CommitStarted() {
	for _, observer := range m {
		observer.CommitStarted()
	}
}

func (m multiProgress) ChangesSeen(n int) {
	for _, observer := range m {
		observer.ChangesSeen(n)
	}
}

func (m multiProgress) LinesCounted(n int) {
	for _, observer := range m {
		observer.LinesCounted(n)
	}
}
