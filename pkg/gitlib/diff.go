package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Diff wraps a libgit2 tree-to-tree diff.
type Diff struct {
	diff *git2go.Diff
}

// Deltas collects the file deltas of the diff. Only the per-side path and
// blob hash survive the translation, which is all the change mapping reads.
func (d *Diff) Deltas() ([]DiffDelta, error) {
	count, err := d.diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("count deltas: %w", err)
	}

	deltas := make([]DiffDelta, 0, count)

	for i := range count {
		delta, deltaErr := d.diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("delta %d: %w", i, deltaErr)
		}

		deltas = append(deltas, DiffDelta{
			Status:  delta.Status,
			OldFile: DiffFile{Path: delta.OldFile.Path, Hash: HashFromOid(delta.OldFile.Oid)},
			NewFile: DiffFile{Path: delta.NewFile.Path, Hash: HashFromOid(delta.NewFile.Oid)},
		})
	}

	return deltas, nil
}

// Free releases the diff. Safe to call more than once.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	// Free() errors are non-actionable in cleanup.
	_ = d.diff.Free()
	d.diff = nil
}

// DiffDelta is one file change of a diff.
type DiffDelta struct {
	Status  git2go.Delta
	OldFile DiffFile
	NewFile DiffFile
}

// DiffFile is one side of a delta.
type DiffFile struct {
	Path string
	Hash Hash
}
