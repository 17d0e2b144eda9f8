package gitlib_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib/gittest"
)

const (
	testName  = "Test User"
	testEmail = "test@example.com"
)

func author(minutes int) gitlib.Signature {
	return gittest.Author(testName, testEmail, minutes)
}

func TestOpenRepositoryNotFound(t *testing.T) {
	t.Parallel()

	_, err := gitlib.OpenRepository(t.TempDir())
	require.Error(t, err)
}

func TestLoadRepositoryRejectsRemotes(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{"https://github.com/a/b", "git@github.com:a/b.git"} {
		_, err := gitlib.LoadRepository(uri)
		require.ErrorIs(t, err, gitlib.ErrRemoteNotSupported, uri)
	}
}

func TestLoadRepositoryTrailingSeparator(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	tr.Commit("init", author(0))

	repo, err := gitlib.LoadRepository(tr.Path + "/")
	require.NoError(t, err)

	defer repo.Free()

	assert.Equal(t, tr.Path, repo.Path())
}

func TestLookupCommit(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	first := tr.Commit("first", author(0))
	tr.Write("a.txt", "b\n")
	second := tr.Commit("second", author(10))

	repo := tr.Open()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head)

	commit, err := repo.LookupCommit(second)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, second, commit.Hash())
	assert.Equal(t, "second", commit.Message())
	assert.Equal(t, testEmail, commit.Author().Email)
	assert.Equal(t, gittest.Epoch.Add(10*time.Minute).Unix(), commit.Author().Seconds())
	assert.Equal(t, 1, commit.NumParents())
	require.NotNil(t, commit.FirstParent())
	assert.Equal(t, first, *commit.FirstParent())

	root, err := repo.LookupCommit(first)
	require.NoError(t, err)

	defer root.Free()

	assert.Nil(t, root.FirstParent())
}

func TestLookupMissingObjects(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	tr.Commit("init", author(0))

	repo := tr.Open()
	missing, err := gitlib.ParseHash("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.NoError(t, err)

	_, err = repo.LookupCommit(missing)
	require.ErrorIs(t, err, gitlib.ErrObjectNotFound)

	_, err = repo.LookupBlob(missing)
	require.ErrorIs(t, err, gitlib.ErrObjectNotFound)

	_, err = repo.PeelToTree(missing)
	require.ErrorIs(t, err, gitlib.ErrObjectNotFound)
}

func TestPeelToTree(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	tr.Write("dir/b.txt", "b\n")
	head := tr.Commit("init", author(0))

	repo := tr.Open()

	tree, err := repo.PeelToTree(head)
	require.NoError(t, err)

	defer tree.Free()

	assert.False(t, tree.Hash().IsZero())
	assert.Equal(t, uint64(2), tree.EntryCount())

	again, err := repo.PeelToTree(tree.Hash())
	require.NoError(t, err)

	defer again.Free()

	assert.Equal(t, tree.Hash(), again.Hash())
}

func TestEmptyTree(t *testing.T) {
	t.Parallel()

	repo := gittest.New(t).Open()
	empty := repo.EmptyTree()

	assert.True(t, empty.Hash().IsZero())
	assert.Equal(t, uint64(0), empty.EntryCount())
	empty.Free()
}

func TestTreeDiffInitialCommit(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "1\n2\n")
	tr.Write("dir/b.txt", "3\n")
	head := tr.Commit("init", author(0))

	repo := tr.Open()

	tree, err := repo.PeelToTree(head)
	require.NoError(t, err)

	defer tree.Free()

	changes, err := repo.TreeDiff(repo.EmptyTree(), tree)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, gitlib.Insert, changes[0].Action)
	assert.Equal(t, "a.txt", changes[0].To.Name)
	assert.True(t, changes[0].To.Mode.IsBlob())
	assert.Equal(t, "dir/b.txt", changes[1].To.Name)
}

func TestTreeDiffActions(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("keep.txt", "same\n")
	tr.Write("edit.txt", "old\n")
	tr.Write("gone.txt", "bye\n")
	tr.Write("link", "target\n")
	first := tr.Commit("first", author(0))

	tr.Write("edit.txt", "new\n")
	tr.Remove("gone.txt")
	tr.Write("added.txt", "hi\n")
	tr.Symlink("link", "keep.txt")
	second := tr.Commit("second", author(5))

	repo := tr.Open()

	oldTree, err := repo.PeelToTree(first)
	require.NoError(t, err)

	defer oldTree.Free()

	newTree, err := repo.PeelToTree(second)
	require.NoError(t, err)

	defer newTree.Free()

	changes, err := repo.TreeDiff(oldTree, newTree)
	require.NoError(t, err)

	byPath := make(map[string]*gitlib.Change)

	for _, change := range changes {
		name := change.To.Name
		if change.Action == gitlib.Delete {
			name = change.From.Name
		}

		byPath[name] = change
	}

	require.Len(t, byPath, 4)
	assert.Equal(t, gitlib.Insert, byPath["added.txt"].Action)
	assert.Equal(t, gitlib.Delete, byPath["gone.txt"].Action)
	assert.Equal(t, gitlib.Modify, byPath["edit.txt"].Action)

	link := byPath["link"]
	assert.Equal(t, gitlib.Modify, link.Action)
	assert.True(t, link.From.Mode.IsBlob())
	assert.False(t, link.To.Mode.IsBlob())
	assert.True(t, link.To.Mode.IsNoTree())
}

func TestTreeDiffSameTree(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	head := tr.Commit("init", author(0))

	repo := tr.Open()

	tree, err := repo.PeelToTree(head)
	require.NoError(t, err)

	defer tree.Free()

	changes, err := repo.TreeDiff(tree, tree)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestForEachChangeStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	tr.Write("b.txt", "b\n")
	head := tr.Commit("init", author(0))

	repo := tr.Open()

	tree, err := repo.PeelToTree(head)
	require.NoError(t, err)

	defer tree.Free()

	stop := errors.New("stop")
	calls := 0

	err = repo.ForEachChange(nil, tree, func(*gitlib.Change) error {
		calls++

		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRenameIsDeleteAndInsert(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("old.txt", "content that stays the same\n")
	first := tr.Commit("first", author(0))

	tr.Remove("old.txt")
	tr.Write("new.txt", "content that stays the same\n")
	second := tr.Commit("rename", author(5))

	repo := tr.Open()

	oldTree, err := repo.PeelToTree(first)
	require.NoError(t, err)

	defer oldTree.Free()

	newTree, err := repo.PeelToTree(second)
	require.NoError(t, err)

	defer newTree.Free()

	changes, err := repo.TreeDiff(oldTree, newTree)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	actions := []gitlib.ChangeAction{changes[0].Action, changes[1].Action}
	assert.ElementsMatch(t, []gitlib.ChangeAction{gitlib.Insert, gitlib.Delete}, actions)
}

func TestLookupBlob(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "one\ntwo\nthree")
	head := tr.Commit("init", author(0))

	repo := tr.Open()

	tree, err := repo.PeelToTree(head)
	require.NoError(t, err)

	defer tree.Free()

	changes, err := repo.TreeDiff(nil, tree)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	blob, err := repo.LookupBlob(changes[0].To.Hash)
	require.NoError(t, err)

	defer blob.Free()

	assert.Equal(t, changes[0].To.Hash, blob.Hash())
	assert.Equal(t, int64(13), blob.Size())
	assert.Equal(t, 3, gitlib.CountLines(blob.Contents()))
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "empty", data: "", want: 0},
		{name: "single terminated", data: "a\n", want: 1},
		{name: "single unterminated", data: "a", want: 1},
		{name: "blank lines", data: "\n\n\n", want: 3},
		{name: "mixed", data: "a\nb\nc", want: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, gitlib.CountLines([]byte(tc.data)))
		})
	}
}

func TestIsBinary(t *testing.T) {
	t.Parallel()

	assert.False(t, gitlib.IsBinary([]byte("plain text\n")))
	assert.True(t, gitlib.IsBinary([]byte{'a', 0, 'b'}))
	assert.False(t, gitlib.IsBinary(nil))

	late := make([]byte, 9000)
	for i := range late {
		late[i] = 'x'
	}

	late[8999] = 0

	assert.False(t, gitlib.IsBinary(late))
}

func TestLogNewestFirst(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)

	var hashes []gitlib.Hash

	for i, content := range []string{"1", "2", "3"} {
		tr.Write("a.txt", content)
		hashes = append(hashes, tr.Commit(content, author(i*10)))
	}

	repo := tr.Open()

	iter, err := repo.Log(&gitlib.LogOptions{FirstParent: true})
	require.NoError(t, err)

	var got []gitlib.Hash

	err = iter.ForEach(func(commit *gitlib.Commit) error {
		got = append(got, commit.Hash())

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []gitlib.Hash{hashes[2], hashes[1], hashes[0]}, got)

	_, err = iter.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLogSince(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)

	for i, content := range []string{"1", "2", "3"} {
		tr.Write("a.txt", content)
		tr.Commit(content, author(i*60))
	}

	repo := tr.Open()
	since := gittest.Epoch.Add(30 * time.Minute)

	iter, err := repo.Log(&gitlib.LogOptions{Since: &since})
	require.NoError(t, err)

	defer iter.Close()

	count := 0

	require.NoError(t, iter.ForEach(func(*gitlib.Commit) error {
		count++

		return nil
	}))

	assert.Equal(t, 2, count)
}

func TestLogMissingCommitIsAnError(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)

	var hashes []gitlib.Hash

	for i, content := range []string{"1", "2", "3"} {
		tr.Write("a.txt", content)
		hashes = append(hashes, tr.Commit(content, author(i*10)))
	}

	tr.RemoveObject(hashes[0])

	iter, err := tr.Open().Log(nil)
	require.NoError(t, err)

	err = iter.ForEach(func(*gitlib.Commit) error { return nil })
	require.ErrorIs(t, err, gitlib.ErrObjectNotFound)

	_, err = iter.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRepositoryClone(t *testing.T) {
	t.Parallel()

	tr := gittest.New(t)
	tr.Write("a.txt", "a\n")
	head := tr.Commit("init", author(0))

	repo := tr.Open()

	clone, err := repo.Clone()
	require.NoError(t, err)

	defer clone.Free()

	cloneHead, err := clone.Head()
	require.NoError(t, err)
	assert.Equal(t, head, cloneHead)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	parsed, err := gitlib.ParseTime("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, parsed.Year())

	parsed, err = gitlib.ParseTime("2024-03-04T05:06:07Z")
	require.NoError(t, err)
	assert.Equal(t, time.March, parsed.Month())

	parsed, err = gitlib.ParseTime("24h")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), parsed, time.Minute)

	_, err = gitlib.ParseTime("yesterday-ish")
	require.ErrorIs(t, err, gitlib.ErrInvalidTimeFormat)
}
