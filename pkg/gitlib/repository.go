package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository wraps a libgit2 repository handle.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens the git repository at path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the path the repository was opened with.
func (r *Repository) Path() string {
	return r.path
}

// Head returns the hash HEAD points at.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// Log returns an iterator over the commits reachable from HEAD, newest
// first. The caller closes it.
func (r *Repository) Log() (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	defer headRef.Free()

	if pushErr := walk.Push(headRef.Target()); pushErr != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", pushErr)
	}

	// Topological order keeps parents after their children even when branch
	// timestamps interleave, so chronological replay stays consistent.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	return &CommitIter{walk: walk, repo: r}, nil
}

// LookupCommit returns the commit with the given hash. The caller frees it.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{raw: commit, repo: r}, nil
}

// LookupBlob returns the blob with the given hash. The caller frees it.
func (r *Repository) LookupBlob(hash Hash) (*Blob, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}

	return &Blob{raw: blob}, nil
}

// LookupTree returns the tree with the given hash. The caller frees it.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree: %w", err)
	}

	return &Tree{raw: tree, repo: r}, nil
}

// DiffTreeToTree diffs oldTree against newTree. Either side may be nil to
// diff against the empty tree.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree) (*Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("diff options: %w", err)
	}

	var oldRaw, newRaw *git2go.Tree
	if oldTree != nil {
		oldRaw = oldTree.raw
	}

	if newTree != nil {
		newRaw = newTree.raw
	}

	diff, err := r.repo.DiffTreeToTree(oldRaw, newRaw, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// Native returns the underlying libgit2 repository.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}

// Free releases the repository. Safe to call more than once.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// IsEmptyRepository reports whether the error marks a repository without
// any commits (unborn HEAD).
func IsEmptyRepository(err error) bool {
	var gitErr *git2go.GitError
	if errors.As(err, &gitErr) {
		return gitErr.Code == git2go.ErrorCodeUnbornBranch || gitErr.Code == git2go.ErrorCodeNotFound
	}

	return false
}
