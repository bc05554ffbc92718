package gitlib

import (
	"fmt"
	"os"

	git2go "github.com/libgit2/git2go/v34"
)

// CloneOptions configures Clone.
type CloneOptions struct {
	// Branch is checked out after cloning when non-empty. A branch missing
	// from the remote leaves the default branch checked out.
	Branch string
}

// Clone clones the repository at url into path.
func Clone(url, path string, opts CloneOptions) (*Repository, error) {
	native, err := git2go.Clone(url, path, &git2go.CloneOptions{})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	repo := &Repository{repo: native, path: path}

	if opts.Branch != "" {
		// Missing branches fall back to the remote default branch.
		_ = checkoutRemoteBranch(native, opts.Branch)
	}

	return repo, nil
}

// CloneToTemp clones the repository at url into a fresh temporary directory
// and returns it together with a cleanup function that removes the directory.
func CloneToTemp(url, branch string) (*Repository, func(), error) {
	dir, err := os.MkdirTemp("", "testevo-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}

	cleanup := func() {
		_ = os.RemoveAll(dir)
	}

	repo, cloneErr := Clone(url, dir, CloneOptions{Branch: branch})
	if cloneErr != nil {
		cleanup()

		return nil, nil, cloneErr
	}

	return repo, cleanup, nil
}

// checkoutRemoteBranch switches the work tree to the named remote branch,
// creating a local branch that tracks it.
func checkoutRemoteBranch(repo *git2go.Repository, name string) error {
	remoteRef, err := repo.References.Lookup("refs/remotes/origin/" + name)
	if err != nil {
		return fmt.Errorf("lookup remote branch %s: %w", name, err)
	}
	defer remoteRef.Free()

	commit, err := repo.LookupCommit(remoteRef.Target())
	if err != nil {
		return fmt.Errorf("lookup branch head %s: %w", name, err)
	}
	defer commit.Free()

	branch, err := repo.CreateBranch(name, commit, false)
	if err != nil {
		branch, err = repo.LookupBranch(name, git2go.BranchLocal)
		if err != nil {
			return fmt.Errorf("create branch %s: %w", name, err)
		}
	}
	defer branch.Free()

	headErr := repo.SetHead("refs/heads/" + name)
	if headErr != nil {
		return fmt.Errorf("set head to %s: %w", name, headErr)
	}

	checkoutErr := repo.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce})
	if checkoutErr != nil {
		return fmt.Errorf("checkout %s: %w", name, checkoutErr)
	}

	return nil
}
