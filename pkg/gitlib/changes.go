package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// ChangeAction classifies a file change between two trees.
type ChangeAction int

const (
	// Insert marks a file added by the commit.
	Insert ChangeAction = iota
	// Delete marks a file removed by the commit.
	Delete
	// Modify marks a file changed in place (including renames and copies).
	Modify
)

// ChangeEntry is one side of a change: the path and blob hash of the file
// before or after the commit.
type ChangeEntry struct {
	Name string
	Hash Hash
}

// Change is one changed file between two trees. Inserts carry only To,
// deletes only From, modifications both.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// Path returns the post-change path, falling back to the pre-change path
// for deletions.
func (c *Change) Path() string {
	if c.Action == Delete {
		return c.From.Name
	}

	return c.To.Name
}

// Changes is the file-level delta of one commit.
type Changes []*Change

// TreeDiff lists the file changes between two trees. Trees with equal
// hashes short-circuit to no changes without running the diff.
func TreeDiff(repo *Repository, oldTree, newTree *Tree) (Changes, error) {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return make(Changes, 0), nil
	}

	diff, err := repo.DiffTreeToTree(oldTree, newTree)
	if err != nil {
		return nil, err
	}
	defer diff.Free()

	deltas, err := diff.Deltas()
	if err != nil {
		return nil, err
	}

	changes := make(Changes, 0, len(deltas))

	for _, delta := range deltas {
		if change, ok := deltaChange(delta); ok {
			changes = append(changes, change)
		}
	}

	return changes, nil
}

// deltaChange maps a diff delta onto a Change, reporting false for delta
// kinds that carry no file content (unmodified, conflicts, type changes).
func deltaChange(delta DiffDelta) (*Change, bool) {
	from := ChangeEntry{Name: delta.OldFile.Path, Hash: delta.OldFile.Hash}
	to := ChangeEntry{Name: delta.NewFile.Path, Hash: delta.NewFile.Hash}

	switch delta.Status {
	case git2go.DeltaAdded:
		return &Change{Action: Insert, To: to}, true
	case git2go.DeltaDeleted:
		return &Change{Action: Delete, From: from}, true
	case git2go.DeltaModified, git2go.DeltaRenamed, git2go.DeltaCopied:
		return &Change{Action: Modify, From: from, To: to}, true
	default:
		return nil, false
	}
}

// InitialTreeChanges lists every blob of a root commit's tree as an
// insertion, matching what a diff against the empty tree would yield.
func InitialTreeChanges(repo *Repository, tree *Tree) (Changes, error) {
	if tree == nil {
		return nil, nil
	}

	changes := make(Changes, 0)

	err := walkTree(repo, tree, "", func(path string, entry *TreeEntry) error {
		changes = append(changes, &Change{
			Action: Insert,
			To:     ChangeEntry{Name: path, Hash: entry.Hash()},
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return changes, nil
}

// walkTree visits every blob under tree with its repository-relative path,
// recursing through subtrees. Entries that cannot be resolved are skipped.
func walkTree(repo *Repository, tree *Tree, prefix string, visit func(path string, entry *TreeEntry) error) error {
	for i := range tree.EntryCount() {
		entry := tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		path := entry.Name()
		if prefix != "" {
			path = prefix + "/" + path
		}

		switch {
		case entry.IsBlob():
			if err := visit(path, entry); err != nil {
				return err
			}
		case entry.IsTree():
			sub, err := repo.LookupTree(entry.Hash())
			if err != nil {
				continue
			}

			walkErr := walkTree(repo, sub, path, visit)
			sub.Free()

			if walkErr != nil {
				return walkErr
			}
		}
	}

	return nil
}
