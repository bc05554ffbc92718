// Package history walks a repository's commit history and head tree,
// producing the dated measurements behind the report: per-commit line
// stats, per-commit file role counts, first-seen tables for the test
// delay metric, and the parsed head snapshot the syntax analyzers run on.
package history

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// Options configures a Scanner.
type Options struct {
	// Workers bounds the per-file parse fan-out. Defaults to the CPU count.
	Workers int
	// Logger receives debug records for skipped files. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Scanner runs the history walk and head-tree scans over one repository.
// Safe for concurrent method calls.
type Scanner struct {
	repo    *gitlib.Repository
	parser  *pysrc.Parser
	logger  *slog.Logger
	workers int

	// blobs caches blob contents across commits. A modified file's old
	// side is the new side of an earlier diff, so the walk rereads hashes.
	blobs *gitlib.BlobCache

	// treeCounts memoizes per-subtree file role counts across commits.
	treeCounts sync.Map
}

// NewScanner creates a scanner over an opened repository.
func NewScanner(repo *gitlib.Repository, opts Options) *Scanner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		repo:    repo,
		parser:  pysrc.NewParser(),
		logger:  logger,
		workers: workers,
		blobs:   gitlib.NewBlobCache(gitlib.DefaultBlobCacheSize),
	}
}

// headCommit resolves and returns the HEAD commit. The caller frees it.
func (s *Scanner) headCommit() (*gitlib.Commit, error) {
	head, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	commit, err := s.repo.LookupCommit(head)
	if err != nil {
		return nil, fmt.Errorf("lookup head commit: %w", err)
	}

	return commit, nil
}
