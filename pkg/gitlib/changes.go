package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrRewriteReported is returned when the diff engine reports a rename or copy
// even though similarity detection was never requested.
var ErrRewriteReported = errors.New("tree diff reported a rewrite with rewrite tracking disabled")

// ChangeAction represents the type of change in a diff.
type ChangeAction int

const (
	// Insert indicates a new entry was added.
	Insert ChangeAction = iota
	// Delete indicates an entry was removed.
	Delete
	// Modify indicates an entry changed content or type at the same path.
	Modify
)

// EntryMode is a git tree entry file mode.
type EntryMode uint16

// IsBlob reports whether the mode is a regular or executable file.
func (m EntryMode) IsBlob() bool {
	mode := git2go.Filemode(m)

	return mode == git2go.FilemodeBlob || mode == git2go.FilemodeBlobExecutable
}

// IsTree reports whether the mode is a directory.
func (m EntryMode) IsTree() bool {
	return git2go.Filemode(m) == git2go.FilemodeTree
}

// IsNoTree reports whether the entry exists and is anything but a directory:
// files, symlinks and submodule links.
func (m EntryMode) IsNoTree() bool {
	return m != 0 && !m.IsTree()
}

// Change represents a single entry change between two trees.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// ChangeEntry represents one side of a change (old or new entry).
type ChangeEntry struct {
	Name string
	Hash Hash
	Size int64
	Mode EntryMode
}

// Changes is a collection of Change objects.
type Changes []*Change

// ForEachChange diffs two trees and calls fn for every change in path order.
// Either tree may be nil (the empty tree). Type changes are reported as a
// single Modify with differing modes; similarity detection is never run, so
// renames show up as a Delete plus an Insert. An error returned by fn stops
// the walk and is returned as is.
func (r *Repository) ForEachChange(oldTree, newTree *Tree, fn func(*Change) error) error {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return nil
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return fmt.Errorf("get diff options: %w", err)
	}

	opts.Flags |= git2go.DiffIncludeTypeChange

	diff, err := r.repo.DiffTreeToTree(oldTree.native(), newTree.native(), &opts)
	if err != nil {
		return fmt.Errorf("diff trees: %w", err)
	}

	wrapped := &Diff{diff: diff}
	defer wrapped.Free()

	numDeltas, err := wrapped.NumDeltas()
	if err != nil {
		return err
	}

	for i := range numDeltas {
		delta, deltaErr := wrapped.Delta(i)
		if deltaErr != nil {
			return deltaErr
		}

		change, changeErr := changeFromDelta(delta)
		if changeErr != nil {
			return changeErr
		}

		if change == nil {
			continue
		}

		cbErr := fn(change)
		if cbErr != nil {
			return cbErr
		}
	}

	return nil
}

// TreeDiff computes the changes between two trees.
func (r *Repository) TreeDiff(oldTree, newTree *Tree) (Changes, error) {
	changes := make(Changes, 0)

	err := r.ForEachChange(oldTree, newTree, func(change *Change) error {
		changes = append(changes, change)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return changes, nil
}

func changeFromDelta(delta DiffDelta) (*Change, error) {
	from := ChangeEntry{
		Name: delta.OldFile.Path,
		Hash: delta.OldFile.Hash,
		Size: delta.OldFile.Size,
		Mode: delta.OldFile.Mode,
	}
	to := ChangeEntry{
		Name: delta.NewFile.Path,
		Hash: delta.NewFile.Hash,
		Size: delta.NewFile.Size,
		Mode: delta.NewFile.Mode,
	}

	switch delta.Status {
	case git2go.DeltaAdded:
		return &Change{Action: Insert, To: to}, nil
	case git2go.DeltaDeleted:
		return &Change{Action: Delete, From: from}, nil
	case git2go.DeltaModified, git2go.DeltaTypeChange:
		return &Change{Action: Modify, From: from, To: to}, nil
	case git2go.DeltaRenamed, git2go.DeltaCopied:
		return nil, fmt.Errorf("%w: %s -> %s", ErrRewriteReported, from.Name, to.Name)
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return nil, nil
	}

	return nil, nil
}
