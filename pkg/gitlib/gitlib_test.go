package gitlib_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
)

// testRepo wraps an on-disk repository for integration testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

// newTestRepo creates a new test repository under t.TempDir.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{t: t, path: dir, native: repo}
}

// createFile writes a file into the working directory, creating parent
// directories as needed.
func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
}

// deleteFile removes a file from the working directory.
func (tr *testRepo) deleteFile(name string) {
	tr.t.Helper()
	require.NoError(tr.t, os.Remove(filepath.Join(tr.path, name)))
}

// commit stages all changes and creates a commit.
func (tr *testRepo) commit(message string) gitlib.Hash {
	tr.t.Helper()

	return tr.commitAt(message, time.Now())
}

// commitAt stages all changes and creates a commit with the given author
// time, so tests can build histories with controlled timestamps.
func (tr *testRepo) commitAt(message string, when time.Time) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	require.NoError(tr.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(tr.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(tr.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: when}

	parents := tr.headCommit()

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// headCommit resolves HEAD into the parent list for the next commit. An
// unborn HEAD yields no parents.
func (tr *testRepo) headCommit() []*git2go.Commit {
	tr.t.Helper()

	head, err := tr.native.Head()
	if err != nil {
		return nil
	}

	defer head.Free()

	parent, err := tr.native.LookupCommit(head.Target())
	require.NoError(tr.t, err)

	return []*git2go.Commit{parent}
}

// open opens the fixture through the library API, freed on test cleanup.
func (tr *testRepo) open() *gitlib.Repository {
	tr.t.Helper()

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(tr.t, err)

	tr.t.Cleanup(repo.Free)

	return repo
}

func freeCommits(commits []*gitlib.Commit) {
	for _, c := range commits {
		c.Free()
	}
}

// Repository Tests.

func TestOpenRepository(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("test.txt", "content")
	tr.commit("initial")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	assert.Equal(t, tr.path, repo.Path())
	assert.NotNil(t, repo.Native())

	// Double free stays safe.
	repo.Free()
	repo.Free()
}

func TestOpenRepositoryNotFound(t *testing.T) {
	repo, err := gitlib.OpenRepository(filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Nil(t, repo)
}

func TestRepositoryHead(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("test.txt", "hello")
	expectedHash := tr.commit("initial")

	repo := tr.open()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, expectedHash, head)
}

// Commit Tests.

func TestLookupCommit(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("file.py", "def main():\n    pass\n")
	commitHash := tr.commit("add file")

	repo := tr.open()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, commitHash, commit.Hash())

	author := commit.Author()
	assert.Equal(t, "Test User", author.Name)
	assert.Equal(t, "test@example.com", author.Email)
	assert.False(t, author.When.IsZero())
	assert.Equal(t, author.Name, commit.Committer().Name)
}

func TestLookupCommitNotFound(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("test.txt", "x")
	tr.commit("init")

	repo := tr.open()

	missing := gitlib.NewHash("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	commit, err := repo.LookupCommit(missing)

	require.Error(t, err)
	assert.Nil(t, commit)
}

func TestCommitterTime(t *testing.T) {
	tr := newTestRepo(t)

	when := time.Date(2022, 7, 4, 9, 30, 0, 0, time.UTC)

	tr.createFile("dated.txt", "x")
	commitHash := tr.commitAt("dated", when)

	repo := tr.open()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	assert.True(t, commit.Committer().When.Equal(when))
}

func TestCommitParent(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("first.txt", "1")
	firstHash := tr.commit("first")

	tr.createFile("second.txt", "2")
	secondHash := tr.commit("second")

	repo := tr.open()

	commit, err := repo.LookupCommit(secondHash)
	require.NoError(t, err)

	defer commit.Free()

	require.Equal(t, 1, commit.NumParents())

	parent, err := commit.Parent(0)
	require.NoError(t, err)

	defer parent.Free()

	assert.Equal(t, firstHash, parent.Hash())
	assert.Equal(t, 0, parent.NumParents())
}

func TestCommitParentNotFound(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("only.txt", "x")
	commitHash := tr.commit("only commit")

	repo := tr.open()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	parent, err := commit.Parent(0)
	require.ErrorIs(t, err, gitlib.ErrParentNotFound)
	assert.Nil(t, parent)
}

func TestCommitTreeAndFiles(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.py", "x = 1\n")
	tr.createFile("pkg/b.py", "y = 2\n")
	commitHash := tr.commit("two files")

	repo := tr.open()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	assert.False(t, tree.Hash().IsZero())

	files, err := commit.Files()
	require.NoError(t, err)

	byPath := map[string]*gitlib.File{}
	for _, f := range files {
		byPath[f.Name] = f
	}

	require.Len(t, byPath, 2)
	require.Contains(t, byPath, "a.py")
	require.Contains(t, byPath, "pkg/b.py")

	contents, err := byPath["pkg/b.py"].Contents()
	require.NoError(t, err)
	assert.Equal(t, "y = 2\n", string(contents))
}

// Log Tests.

func TestLogNewestFirst(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "a")
	first := tr.commitAt("first", time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC))

	tr.createFile("b.txt", "b")
	second := tr.commitAt("second", time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC))

	repo := tr.open()

	iter, err := repo.Log()
	require.NoError(t, err)

	defer iter.Close()

	var hashes []gitlib.Hash

	forErr := iter.ForEach(func(c *gitlib.Commit) error {
		hashes = append(hashes, c.Hash())

		return nil
	})
	require.NoError(t, forErr)
	assert.Equal(t, []gitlib.Hash{second, first}, hashes)
}

func TestCommitIterNextAfterClose(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "a")
	tr.commit("init")

	repo := tr.open()

	iter, err := repo.Log()
	require.NoError(t, err)

	iter.Close()

	commit, nextErr := iter.Next()
	assert.Nil(t, commit)
	require.ErrorIs(t, nextErr, io.EOF)
}

func TestCommitIterForEachStopsOnError(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "a")
	tr.commit("first")

	tr.createFile("b.txt", "b")
	tr.commit("second")

	repo := tr.open()

	iter, err := repo.Log()
	require.NoError(t, err)

	defer iter.Close()

	errStop := errors.New("stop")
	calls := 0

	forErr := iter.ForEach(func(*gitlib.Commit) error {
		calls++

		return errStop
	})
	require.ErrorIs(t, forErr, errStop)
	assert.Equal(t, 1, calls)
}

func TestLoadCommitsOldestFirst(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.txt", "a")
	first := tr.commitAt("first", time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC))

	tr.createFile("b.txt", "b")
	second := tr.commitAt("second", time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC))

	repo := tr.open()

	commits, err := gitlib.LoadCommits(repo)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	defer freeCommits(commits)

	assert.Equal(t, first, commits[0].Hash())
	assert.Equal(t, second, commits[1].Hash())
}
