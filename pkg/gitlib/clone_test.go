package gitlib_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
)

// branch creates a local branch at the current HEAD of the fixture.
func (tr *testRepo) branch(name string) {
	tr.t.Helper()

	head, err := tr.native.Head()
	require.NoError(tr.t, err)

	defer head.Free()

	commit, err := tr.native.LookupCommit(head.Target())
	require.NoError(tr.t, err)

	defer commit.Free()

	ref, err := tr.native.CreateBranch(name, commit, false)
	require.NoError(tr.t, err)
	ref.Free()
}

func TestCloneLocalRepository(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("module.py", "value = 1\n")
	headHash := tr.commit("initial")

	dest := t.TempDir()

	repo, err := gitlib.Clone(tr.path, dest, gitlib.CloneOptions{})
	require.NoError(t, err)

	defer repo.Free()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, headHash, head)
}

func TestCloneChecksOutBranch(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("main.py", "v = 1\n")
	tr.commit("main commit")

	tr.branch("feature")

	tr.createFile("extra.py", "w = 2\n")
	mainHead := tr.commit("after branch")

	dest := t.TempDir()

	repo, err := gitlib.Clone(tr.path, dest, gitlib.CloneOptions{Branch: "feature"})
	require.NoError(t, err)

	defer repo.Free()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.NotEqual(t, mainHead, head, "clone should sit on the feature branch")
}

func TestCloneMissingBranchFallsBack(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("main.py", "v = 1\n")
	headHash := tr.commit("only commit")

	dest := t.TempDir()

	repo, err := gitlib.Clone(tr.path, dest, gitlib.CloneOptions{Branch: "does-not-exist"})
	require.NoError(t, err)

	defer repo.Free()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, headHash, head, "missing branch keeps the default head")
}

func TestCloneToTempCleanup(t *testing.T) {
	tr := newTestRepo(t)

	tr.createFile("a.py", "a = 1\n")
	tr.commit("init")

	repo, cleanup, err := gitlib.CloneToTemp(tr.path, "")
	require.NoError(t, err)

	dir := repo.Path()
	require.DirExists(t, dir)

	repo.Free()
	cleanup()

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "cleanup should remove the clone directory")
}

func TestCloneToTempInvalidSource(t *testing.T) {
	repo, cleanup, err := gitlib.CloneToTemp("/no/such/source", "")

	assert.Nil(t, repo)
	assert.Nil(t, cleanup)
	require.Error(t, err)
}
