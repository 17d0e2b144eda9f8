package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree. A nil *Tree stands for the empty tree.
type Tree struct {
	tree *git2go.Tree
}

// Hash returns the tree hash, or the zero hash for the empty tree.
func (t *Tree) Hash() Hash {
	if t == nil || t.tree == nil {
		return Hash{}
	}

	return HashFromOid(t.tree.Id())
}

// EntryCount returns the number of top-level entries in the tree.
func (t *Tree) EntryCount() uint64 {
	if t == nil || t.tree == nil {
		return 0
	}

	return t.tree.EntryCount()
}

// Free releases the tree resources. Safe on nil.
func (t *Tree) Free() {
	if t != nil && t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}

// native returns the libgit2 tree, nil for the empty tree.
func (t *Tree) native() *git2go.Tree {
	if t == nil {
		return nil
	}

	return t.tree
}
