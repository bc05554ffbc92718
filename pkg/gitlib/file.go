package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// File is one blob of a tree, addressed by its repository-relative path.
type File struct {
	Name string
	Hash Hash
	repo *Repository
}

// Contents reads the file's blob.
func (f *File) Contents() ([]byte, error) {
	blob, err := f.repo.LookupBlob(f.Hash)
	if err != nil {
		return nil, err
	}
	defer blob.Free()

	return blob.Contents(), nil
}

// TreeFiles flattens a tree into its files, nested directories included.
func TreeFiles(repo *Repository, tree *Tree) ([]*File, error) {
	var files []*File

	err := walkTree(repo, tree, "", func(path string, entry *TreeEntry) error {
		files = append(files, &File{Name: path, Hash: entry.Hash(), repo: repo})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Blob wraps a libgit2 blob.
type Blob struct {
	raw *git2go.Blob
}

// Contents returns the blob contents. git2go copies the bytes out of
// libgit2 memory, so the slice stays valid after Free.
func (b *Blob) Contents() []byte {
	return b.raw.Contents()
}

// Free releases the blob.
func (b *Blob) Free() {
	if b.raw != nil {
		b.raw.Free()
		b.raw = nil
	}
}
