package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
	"github.com/Sumatoshi-tech/testevo/pkg/textutil"
)

// Snapshot parses every Python source at HEAD into the snapshot the syntax
// analyzers consume. Parsing fans out over a bounded worker pool; files
// that cannot be read or parsed are skipped with a debug log. An empty
// repository yields an empty snapshot.
func (s *Scanner) Snapshot(ctx context.Context) (*analyze.Snapshot, error) {
	commit, err := s.headCommit()
	if err != nil {
		if gitlib.IsEmptyRepository(err) {
			return &analyze.Snapshot{}, nil
		}

		return nil, err
	}
	defer commit.Free()

	headFiles, err := commit.Files()
	if err != nil {
		return nil, fmt.Errorf("list head files: %w", err)
	}

	var candidates []*gitlib.File

	for _, f := range headFiles {
		if isPythonPath(f.Name) {
			candidates = append(candidates, f)
		}
	}

	sem := make(chan struct{}, s.workers)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	files := make([]analyze.SourceFile, 0, len(candidates))

	for _, candidate := range candidates {
		wg.Add(1)

		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			parsed, ok := s.parseFile(ctx, candidate)
			if !ok {
				return
			}

			mu.Lock()
			files = append(files, analyze.SourceFile{
				Path:   candidate.Name,
				Role:   classify.PathRole(candidate.Name),
				Parsed: parsed,
			})
			mu.Unlock()
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("snapshot: %w", ctx.Err())
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return &analyze.Snapshot{Files: files}, nil
}

// parseFile reads and parses one head-tree file, reporting false when the
// file is skipped.
func (s *Scanner) parseFile(ctx context.Context, file *gitlib.File) (*pysrc.File, bool) {
	contents, err := file.Contents()
	if err != nil {
		s.logger.Debug("skipping unreadable file", "path", file.Name, "err", err)

		return nil, false
	}

	if textutil.IsBinary(contents) {
		s.logger.Debug("skipping binary file", "path", file.Name)

		return nil, false
	}

	parsed, err := s.parser.Parse(ctx, file.Name, contents)
	if err != nil {
		s.logger.Debug("skipping unparseable file", "path", file.Name, "err", err)

		return nil, false
	}

	return parsed, true
}

func isPythonPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".py")
}
