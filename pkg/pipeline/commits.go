// Package pipeline turns a repository's history into per-contributor work
// estimates: it walks commits, resolves identities, mines change statistics
// and aggregates them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/hourglass/pkg/framework"
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/safeconv"
)

// CommitRecord is one walked commit.
type CommitRecord struct {
	// Index is the position in the walk, newest first, starting at zero.
	Index  uint32
	Author gitlib.Signature
	Parent *gitlib.Hash
	Hash   gitlib.Hash
}

// WorkItem returns the tree diff work for the record.
func (r CommitRecord) WorkItem() framework.WorkItem {
	return framework.WorkItem{Index: r.Index, Parent: r.Parent, Commit: r.Hash}
}

// CollectOptions selects the commits to walk.
type CollectOptions struct {
	gitlib.LogOptions

	// Limit caps the number of commits; zero means no limit.
	Limit int
}

// CollectCommits walks history from HEAD newest first. ctx is checked before
// every commit; when it is cancelled the records walked so far are returned
// with interrupted set and no error.
func CollectCommits(
	ctx context.Context, repo *gitlib.Repository, opts CollectOptions,
) (records []CommitRecord, interrupted bool, err error) {
	iter, err := repo.Log(&opts.LogOptions)
	if err != nil {
		return nil, false, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	for opts.Limit <= 0 || len(records) < opts.Limit {
		if ctx.Err() != nil {
			return records, true, nil
		}

		commit, nextErr := iter.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return nil, false, nextErr
		}

		records = append(records, CommitRecord{
			Index:  safeconv.MustIntToUint32(len(records)),
			Author: commit.Author(),
			Parent: commit.FirstParent(),
			Hash:   commit.Hash(),
		})

		commit.Free()
	}

	return records, false, nil
}
