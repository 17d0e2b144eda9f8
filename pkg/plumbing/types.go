// Package plumbing holds the per-commit statistics produced by the mining
// workers and consumed by the hours estimator.
package plumbing

import (
	"cmp"
	"slices"
)

// FileStats holds the numbers of added, removed and modified files.
type FileStats struct {
	Added    uint32 `json:"added" yaml:"added"`
	Removed  uint32 `json:"removed" yaml:"removed"`
	Modified uint32 `json:"modified" yaml:"modified"`
}

// Add accumulates other into fs.
func (fs *FileStats) Add(other FileStats) {
	fs.Added += other.Added
	fs.Removed += other.Removed
	fs.Modified += other.Modified
}

// Total returns the number of touched files.
func (fs FileStats) Total() uint32 {
	return fs.Added + fs.Removed + fs.Modified
}

// LineStats holds the numbers of inserted and deleted lines.
type LineStats struct {
	// Added is the number of inserted lines.
	Added uint32 `json:"added" yaml:"added"`
	// Removed is the number of deleted lines.
	Removed uint32 `json:"removed" yaml:"removed"`
}

// Add accumulates other into ls.
func (ls *LineStats) Add(other LineStats) {
	ls.Added += other.Added
	ls.Removed += other.Removed
}

// CommitStat is the change summary of one commit against its first parent.
// Index is the commit's position in the collected history.
type CommitStat struct {
	Index uint32
	Files FileStats
	Lines LineStats
}

// SortByIndex orders stats for FindStat.
func SortByIndex(stats []CommitStat) {
	slices.SortFunc(stats, func(a, b CommitStat) int {
		return cmp.Compare(a.Index, b.Index)
	})
}

// FindStat binary searches stats, which must be sorted by Index.
func FindStat(stats []CommitStat, index uint32) (CommitStat, bool) {
	pos, found := slices.BinarySearchFunc(stats, index, func(stat CommitStat, target uint32) int {
		return cmp.Compare(stat.Index, target)
	})
	if !found {
		return CommitStat{}, false
	}

	return stats[pos], true
}
