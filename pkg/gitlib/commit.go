package gitlib

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/testevo/pkg/safeconv"
)

// ErrParentNotFound is returned when the requested parent commit does not
// exist.
var ErrParentNotFound = errors.New("parent commit not found")

// Signature is the name, email and timestamp of an author or committer.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func asSignature(sig *git2go.Signature) Signature {
	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

// Commit wraps a libgit2 commit.
type Commit struct {
	raw  *git2go.Commit
	repo *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.raw.Id())
}

// Author returns the author signature.
func (c *Commit) Author() Signature {
	return asSignature(c.raw.Author())
}

// Committer returns the committer signature. Measurements are dated by
// committer time.
func (c *Commit) Committer() Signature {
	return asSignature(c.raw.Committer())
}

// NumParents returns the number of parents.
func (c *Commit) NumParents() int {
	return safeconv.MustUintToInt(c.raw.ParentCount())
}

// Parent returns the nth parent commit. The caller frees it.
func (c *Commit) Parent(n int) (*Commit, error) {
	parent := c.raw.Parent(safeconv.MustIntToUint(n))
	if parent == nil {
		return nil, ErrParentNotFound
	}

	return &Commit{raw: parent, repo: c.repo}, nil
}

// Tree returns the commit's tree. The caller frees it.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.raw.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit tree: %w", err)
	}

	return &Tree{raw: tree, repo: c.repo}, nil
}

// Files returns every blob reachable from the commit's tree, paths
// repository-relative.
func (c *Commit) Files() ([]*File, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	return TreeFiles(c.repo, tree)
}

// Free releases the commit.
func (c *Commit) Free() {
	if c.raw != nil {
		c.raw.Free()
		c.raw = nil
	}
}

// CommitIter walks commits newest first.
type CommitIter struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Next returns the next commit, or io.EOF when the walk is exhausted or
// closed. Commits that cannot be looked up are skipped.
func (ci *CommitIter) Next() (*Commit, error) {
	if ci.walk == nil {
		return nil, io.EOF
	}

	for {
		oid := new(git2go.Oid)
		if err := ci.walk.Next(oid); err != nil {
			return nil, io.EOF
		}

		commit, err := ci.repo.repo.LookupCommit(oid)
		if err != nil {
			continue
		}

		return &Commit{raw: commit, repo: ci.repo}, nil
	}
}

// ForEach calls cb for every remaining commit, freeing each after the
// callback returns. A callback error stops the iteration.
func (ci *CommitIter) ForEach(cb func(*Commit) error) error {
	for {
		commit, err := ci.Next()

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		cbErr := cb(commit)
		commit.Free()

		if cbErr != nil {
			return cbErr
		}
	}
}

// Close releases the underlying walk. Next returns io.EOF afterwards.
func (ci *CommitIter) Close() {
	if ci.walk != nil {
		ci.walk.Free()
		ci.walk = nil
	}
}

// LoadCommits returns every commit reachable from HEAD, oldest first, so
// history replay runs chronologically. The caller frees the commits.
func LoadCommits(repository *Repository) ([]*Commit, error) {
	iter, err := repository.Log()
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer iter.Close()

	var commits []*Commit

	for {
		commit, nextErr := iter.Next()
		if nextErr != nil {
			break
		}

		commits = append(commits, commit)
	}

	slices.Reverse(commits)

	return commits, nil
}
