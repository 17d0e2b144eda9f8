package gitlib

import (
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrObjectNotFound is returned when an object id does not resolve to an object
// of the requested kind in the object database.
var ErrObjectNotFound = errors.New("object not found")

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Clone opens an independent handle to the same repository. libgit2 handles
// are not safe for concurrent use, so every worker needs its own.
func (r *Repository) Clone() (*Repository, error) {
	return OpenRepository(r.path)
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, classify(err))
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupBlob returns the blob with the given hash.
func (r *Repository) LookupBlob(hash Hash) (*Blob, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob %s: %w", hash, classify(err))
	}

	return &Blob{blob: blob}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree %s: %w", hash, classify(err))
	}

	return &Tree{tree: tree}, nil
}

// PeelToTree resolves any tree-ish id (commit, annotated tag or tree) to its tree.
func (r *Repository) PeelToTree(hash Hash) (*Tree, error) {
	obj, err := r.repo.Lookup(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup object %s: %w", hash, classify(err))
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectTree)
	if err != nil {
		return nil, fmt.Errorf("peel %s to tree: %w", hash, classify(err))
	}
	defer peeled.Free()

	tree, err := peeled.AsTree()
	if err != nil {
		return nil, fmt.Errorf("peel %s to tree: %w", hash, classify(err))
	}

	return &Tree{tree: tree}, nil
}

// EmptyTree returns the tree a root commit is compared against. libgit2 treats
// a nil tree as empty, so no object is allocated.
func (r *Repository) EmptyTree() *Tree {
	return nil
}

// LogOptions configures the commit log iteration.
type LogOptions struct {
	Since       *time.Time // Only include commits after this time.
	FirstParent bool       // Follow only first parent (git log --first-parent).
}

// Log returns a commit iterator starting from HEAD, newest first.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	iter := &CommitIter{walk: walk, repo: r}

	if opts != nil {
		if opts.FirstParent {
			walk.SimplifyFirstParent()
		}

		iter.since = opts.Since
	}

	return iter, nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}

// classify maps libgit2 "not found" style failures onto ErrObjectNotFound so
// callers can tell a missing object from a genuine I/O failure.
func classify(err error) error {
	if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) ||
		git2go.IsErrorCode(err, git2go.ErrorCodeInvalidSpec) ||
		git2go.IsErrorCode(err, git2go.ErrorCodeAmbiguous) {
		return errors.Join(ErrObjectNotFound, err)
	}

	var gitErr *git2go.GitError
	if errors.As(err, &gitErr) && gitErr.Class == git2go.ErrorClassObject {
		return errors.Join(ErrObjectNotFound, err)
	}

	return err
}

// SetObjectCacheLimit caps libgit2's in-memory object cache in bytes. The
// limit is process-wide and shared by every open handle.
func SetObjectCacheLimit(bytes int64) error {
	if bytes <= 0 {
		return nil
	}

	err := git2go.SetCacheMaxSize(int(bytes))
	if err != nil {
		return fmt.Errorf("set object cache limit: %w", err)
	}

	return nil
}
