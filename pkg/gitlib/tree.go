package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// Tree is a handle on one commit's file tree.
type Tree struct {
	raw  *git2go.Tree
	repo *Repository
}

// Hash returns the tree hash. Equal hashes mean identical contents, which
// the diff and the role-count memo both rely on.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.raw.Id())
}

// EntryCount returns the number of direct entries.
func (t *Tree) EntryCount() uint64 {
	return t.raw.EntryCount()
}

// EntryByIndex returns the entry at index i, or nil when out of range.
func (t *Tree) EntryByIndex(i uint64) *TreeEntry {
	raw := t.raw.EntryByIndex(i)
	if raw == nil {
		return nil
	}

	return &TreeEntry{raw: raw}
}

// Free releases the tree.
func (t *Tree) Free() {
	t.raw.Free()
}

// TreeEntry is one direct entry of a tree.
type TreeEntry struct {
	raw *git2go.TreeEntry
}

// Name returns the entry name, relative to its tree.
func (e *TreeEntry) Name() string {
	return e.raw.Name
}

// Hash returns the hash of the object the entry points at.
func (e *TreeEntry) Hash() Hash {
	return HashFromOid(e.raw.Id)
}

// IsBlob reports whether the entry is a blob.
func (e *TreeEntry) IsBlob() bool {
	return e.raw.Type == git2go.ObjectBlob
}

// IsTree reports whether the entry is a subtree.
func (e *TreeEntry) IsTree() bool {
	return e.raw.Type == git2go.ObjectTree
}
