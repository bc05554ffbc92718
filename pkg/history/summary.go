package history

import (
	"fmt"
	"path"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/mathutil"
	"github.com/Sumatoshi-tech/testevo/pkg/textutil"
)

// LocalSummary is the head-tree test file summary.
type LocalSummary struct {
	NumTestFiles     int
	AvgTestFileLines float64
}

// Summarize counts the head tree's test files and averages their line
// counts, rounded to 1 decimal. No test files yields zeros.
func (s *Scanner) Summarize() (LocalSummary, error) {
	var lineCounts []float64

	err := s.eachHeadFile(func(f *gitlib.File) {
		if !classify.IsTestPath(f.Name) {
			return
		}

		contents, readErr := f.Contents()
		if readErr != nil {
			s.logger.Debug("skipping unreadable file", "path", f.Name, "err", readErr)

			return
		}

		lineCounts = append(lineCounts, float64(textutil.CountLines(contents)))
	})
	if err != nil {
		return LocalSummary{}, err
	}

	summary := LocalSummary{NumTestFiles: len(lineCounts)}
	if len(lineCounts) > 0 {
		summary.AvgTestFileLines = mathutil.RoundTo(mathutil.Mean(lineCounts), 1)
	}

	return summary, nil
}

// Languages returns per-language file counts over the head tree, detected
// with enry from file name and contents.
func (s *Scanner) Languages() (map[string]int, error) {
	counts := map[string]int{}

	err := s.eachHeadFile(func(f *gitlib.File) {
		contents, readErr := f.Contents()
		if readErr != nil {
			s.logger.Debug("skipping unreadable file", "path", f.Name, "err", readErr)

			return
		}

		lang := enry.GetLanguage(path.Base(f.Name), contents)
		if lang != "" {
			counts[lang]++
		}
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// eachHeadFile visits every file of the head tree. An empty repository
// visits nothing.
func (s *Scanner) eachHeadFile(visit func(*gitlib.File)) error {
	commit, err := s.headCommit()
	if err != nil {
		if gitlib.IsEmptyRepository(err) {
			return nil
		}

		return err
	}
	defer commit.Free()

	files, err := commit.Files()
	if err != nil {
		return fmt.Errorf("list head files: %w", err)
	}

	for _, f := range files {
		visit(f)
	}

	return nil
}
