package framework

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/hourglass/pkg/alg/lru"
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
)

// contentSize is the lru size function for blob contents.
func contentSize(data []byte) int64 {
	return int64(len(data))
}

// diffArena holds the reusable resources of one worker's content diffs. It is
// created when the worker starts and released when its loop ends; reset runs
// before every commit and keeps the allocations.
type diffArena struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	current map[gitlib.Hash][]byte
	objects *lru.Cache[gitlib.Hash, []byte]
}

// newDiffArena creates an arena whose cross-commit object cache holds up to
// cacheBytes of blob contents. Zero disables that cache.
func newDiffArena(cacheBytes int64) *diffArena {
	arena := &diffArena{
		dmp:     diffmatchpatch.New(),
		current: make(map[gitlib.Hash][]byte),
	}

	if cacheBytes > 0 {
		arena.objects = lru.New(lru.WithMaxBytes[gitlib.Hash, []byte](cacheBytes, contentSize))
	}

	return arena
}

// reset forgets the blobs of the previous commit.
func (a *diffArena) reset() {
	clear(a.current)
}

// release drops every held resource.
func (a *diffArena) release() {
	a.current = nil
	a.dmp = nil

	if a.objects != nil {
		a.objects.Clear()
		a.objects = nil
	}
}

// blob returns the contents of hash, loading it through repo on a miss.
func (a *diffArena) blob(repo *gitlib.Repository, hash gitlib.Hash) ([]byte, error) {
	if data, ok := a.current[hash]; ok {
		return data, nil
	}

	if a.objects != nil {
		if data, ok := a.objects.Get(hash); ok {
			a.current[hash] = data

			return data, nil
		}
	}

	blob, err := repo.LookupBlob(hash)
	if err != nil {
		return nil, err
	}

	data := blob.Contents()
	blob.Free()

	a.current[hash] = data

	if a.objects != nil {
		a.objects.Put(hash, data)
	}

	return data, nil
}

// lineDiff returns the number of inserted and deleted lines turning before
// into after. Binary content yields zero and false.
func (a *diffArena) lineDiff(before, after []byte) (insertions, deletions int, ok bool) {
	if gitlib.IsBinary(before) || gitlib.IsBinary(after) {
		return 0, 0, false
	}

	src, dst, _ := a.dmp.DiffLinesToRunes(string(before), string(after))
	diffs := a.dmp.DiffMainRunes(src, dst, false)

	for _, diff := range diffs {
		// Each rune stands for one line.
		lines := utf8.RuneCountInString(diff.Text)

		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			insertions += lines
		case diffmatchpatch.DiffDelete:
			deletions += lines
		case diffmatchpatch.DiffEqual:
		}
	}

	return insertions, deletions, true
}

// stats exposes the object cache statistics, zero when the cache is disabled.
func (a *diffArena) stats() lru.Stats {
	if a.objects == nil {
		return lru.Stats{}
	}

	return a.objects.Stats()
}
