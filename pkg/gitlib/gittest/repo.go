// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hourglass/pkg/gitlib"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Epoch is the base time Author offsets from.
var Epoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// Repo is a non-bare repository in a temp directory.
type Repo struct {
	t      testing.TB
	Path   string
	native *git2go.Repository
}

// New initializes an empty repository.
func New(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &Repo{t: t, Path: dir, native: repo}
}

// Write creates or overwrites a file in the working directory.
func (r *Repo) Write(name, content string) {
	r.WriteBytes(name, []byte(content))
}

// WriteBytes creates or overwrites a file with raw content.
func (r *Repo) WriteBytes(name string, data []byte) {
	r.t.Helper()

	path := filepath.Join(r.Path, name)

	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), dirPerm))
	require.NoError(r.t, os.RemoveAll(path))
	require.NoError(r.t, os.WriteFile(path, data, filePerm))
}

// Symlink replaces name with a symlink pointing at target.
func (r *Repo) Symlink(name, target string) {
	r.t.Helper()

	path := filepath.Join(r.Path, name)

	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), dirPerm))
	require.NoError(r.t, os.RemoveAll(path))
	require.NoError(r.t, os.Symlink(target, path))
}

// Remove deletes a file or directory from the working directory.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	require.NoError(r.t, os.RemoveAll(filepath.Join(r.Path, name)))
}

// RemoveObject deletes the loose object file of hash, leaving a repository
// whose history references a missing object.
func (r *Repo) RemoveObject(hash gitlib.Hash) {
	r.t.Helper()

	hex := hash.String()
	require.NoError(r.t, os.Remove(filepath.Join(r.Path, ".git", "objects", hex[:2], hex[2:])))
}

// Author returns a signature offset from Epoch by the given minutes.
func Author(name, email string, minutes int) gitlib.Signature {
	return gitlib.Signature{
		Name:  name,
		Email: email,
		When:  Epoch.Add(time.Duration(minutes) * time.Minute),
	}
}

// Commit stages the whole working directory and commits it on top of HEAD.
func (r *Repo) Commit(message string, author gitlib.Signature) gitlib.Hash {
	r.t.Helper()

	index, err := r.native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: author.Name, Email: author.Email, When: author.When}

	var parents []*git2go.Commit

	head, err := r.native.Head()
	if err == nil {
		headCommit, lookupErr := r.native.LookupCommit(head.Target())
		require.NoError(r.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := r.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(r.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// Open returns a gitlib handle freed at test cleanup.
func (r *Repo) Open() *gitlib.Repository {
	r.t.Helper()

	repo, err := gitlib.OpenRepository(r.Path)
	require.NoError(r.t, err)

	r.t.Cleanup(repo.Free)

	return repo
}
