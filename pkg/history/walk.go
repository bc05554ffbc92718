package history

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/textutil"
)

// WalkHistory replays every commit oldest-first, accumulating per-commit
// line stats, per-commit file role counts and the first-seen tables.
// An empty repository yields an empty result, not an error.
func (s *Scanner) WalkHistory(ctx context.Context) (*WalkResult, error) {
	if _, err := s.repo.Head(); err != nil {
		if gitlib.IsEmptyRepository(err) {
			s.logger.Debug("repository has no commits")

			return &WalkResult{}, nil
		}

		return nil, fmt.Errorf("walk history: %w", err)
	}

	commits, err := gitlib.LoadCommits(s.repo)
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}

	defer func() {
		for _, c := range commits {
			c.Free()
		}
	}()

	result := &WalkResult{
		TotalCommits: len(commits),
		CommitStats:  make([]CommitMeasurement, 0, len(commits)),
		FileStats:    make([]SnapshotMeasurement, 0, len(commits)),
	}

	for _, commit := range commits {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("walk history: %w", ctx.Err())
		}

		when := commit.Committer().When

		changes, changesErr := s.commitChanges(commit)
		if changesErr != nil {
			return nil, fmt.Errorf("changes for %s: %w", commit.Hash(), changesErr)
		}

		measurement := CommitMeasurement{Date: when}
		s.commitLineStats(&measurement, changes)
		result.CommitStats = append(result.CommitStats, measurement)

		result.FirstSeen.record(changes, when)

		prod, test, countErr := s.treeFileCounts(commit)
		if countErr != nil {
			return nil, fmt.Errorf("file counts for %s: %w", commit.Hash(), countErr)
		}

		result.FileStats = append(result.FileStats, SnapshotMeasurement{
			Date:      when,
			ProdFiles: prod,
			TestFiles: test,
		})
	}

	stats := s.blobs.Stats()
	s.logger.Debug("blob cache after walk",
		"entries", stats.Entries, "hit_rate", stats.HitRate())

	return result, nil
}

// commitChanges diffs the commit against its first parent; root commits
// report every file as an insertion.
func (s *Scanner) commitChanges(commit *gitlib.Commit) (gitlib.Changes, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	if commit.NumParents() == 0 {
		return gitlib.InitialTreeChanges(s.repo, tree)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return nil, err
	}
	defer parent.Free()

	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	defer parentTree.Free()

	return gitlib.TreeDiff(s.repo, parentTree, tree)
}

// commitLineStats folds the commit's changed line counts into the
// measurement, bucketed by the role classifier. Test paths count as test
// lines, everything else as code lines.
func (s *Scanner) commitLineStats(m *CommitMeasurement, changes gitlib.Changes) {
	for _, change := range changes {
		var lines int

		switch change.Action {
		case gitlib.Insert:
			lines = s.blobLines(change.To.Hash, change.To.Name)
		case gitlib.Delete:
			lines = s.blobLines(change.From.Hash, change.From.Name)
		case gitlib.Modify:
			lines = s.modifiedLines(change)
		}

		if classify.IsTestPath(change.Path()) {
			m.TestLines += lines
		} else {
			m.CodeLines += lines
		}
	}
}

// blobData returns blob contents through the cross-commit cache.
func (s *Scanner) blobData(hash gitlib.Hash, path string) ([]byte, bool) {
	if data, ok := s.blobs.Get(hash); ok {
		return data, true
	}

	blob, err := s.repo.LookupBlob(hash)
	if err != nil {
		s.logger.Debug("skipping unreadable blob", "path", path, "err", err)

		return nil, false
	}
	defer blob.Free()

	data := blob.Contents()
	s.blobs.Put(hash, data)

	return data, true
}

// blobLines counts the lines of one blob, 0 for binary or unreadable blobs.
func (s *Scanner) blobLines(hash gitlib.Hash, path string) int {
	data, ok := s.blobData(hash, path)
	if !ok || textutil.IsBinary(data) {
		return 0
	}

	return textutil.CountLines(data)
}

// modifiedLines counts inserted+deleted lines between the two sides of a
// modification. Binary blobs on either side are skipped.
func (s *Scanner) modifiedLines(change *gitlib.Change) int {
	oldData, ok := s.blobData(change.From.Hash, change.From.Name)
	if !ok {
		return 0
	}

	newData, ok := s.blobData(change.To.Hash, change.To.Name)
	if !ok {
		return 0
	}

	if textutil.IsBinary(oldData) || textutil.IsBinary(newData) {
		return 0
	}

	added, removed := diffLineCounts(string(oldData), string(newData))

	return added + removed
}

// diffLineCounts runs a line-mode diff and returns inserted and deleted
// line counts. In rune-mapped line mode each rune stands for one line.
func diffLineCounts(from, to string) (added, removed int) {
	dmp := diffmatchpatch.New()

	src, dst, _ := dmp.DiffLinesToRunes(from, to)
	diffs := dmp.DiffMainRunes(src, dst, false)

	for _, edit := range diffs {
		switch edit.Type {
		case diffmatchpatch.DiffInsert:
			added += utf8.RuneCountInString(edit.Text)
		case diffmatchpatch.DiffDelete:
			removed += utf8.RuneCountInString(edit.Text)
		case diffmatchpatch.DiffEqual:
		}
	}

	return added, removed
}
