package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/doubles"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/flaky"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/funccov"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/smells"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/testtypes"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/history"
	"github.com/Sumatoshi-tech/testevo/pkg/report"
	"github.com/Sumatoshi-tech/testevo/pkg/timeseries"
)

// defaultGranularityName is the bucket size used when the input omits one.
const defaultGranularityName = "yearly"

// AnalyzeInput is the input schema for the testevo_analyze tool.
type AnalyzeInput struct {
	Analyzers   []string `json:"analyzers,omitempty"   jsonschema:"optional list of analyzer names to run (default: all)"`
	Granularity string   `json:"granularity,omitempty" jsonschema:"time-series bucket size, monthly or yearly (default: yearly)"`
	RepoPath    string   `json:"repo_path"             jsonschema:"absolute path to a Git repository"`
	Workers     int      `json:"workers,omitempty"     jsonschema:"parse worker count (default: CPU count)"`
}

// Sentinel errors for repo_path validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
)

// handleAnalyze processes testevo_analyze tool calls.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input AnalyzeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoPath(input.RepoPath)
	if err != nil {
		return errorResult(err)
	}

	name := input.Granularity
	if name == "" {
		name = defaultGranularityName
	}

	granularity, err := timeseries.ParseGranularity(name)
	if err != nil {
		return errorResult(err)
	}

	return s.executeAnalyze(ctx, input, granularity)
}

// executeAnalyze runs the full scan pipeline against a local repository.
func (s *Server) executeAnalyze(
	ctx context.Context,
	input AnalyzeInput,
	granularity timeseries.Granularity,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	repo, err := gitlib.OpenRepository(input.RepoPath)
	if err != nil {
		return errorResult(fmt.Errorf("open repository: %w", err))
	}
	defer repo.Free()

	scanner := history.NewScanner(repo, history.Options{
		Workers: input.Workers,
		Logger:  s.logger,
	})

	walk, err := scanner.WalkHistory(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("walk history: %w", err))
	}

	snapshot, err := scanner.Snapshot(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("snapshot head: %w", err))
	}

	summary, err := scanner.Summarize()
	if err != nil {
		return errorResult(fmt.Errorf("summarize head: %w", err))
	}

	factory := analyze.NewFactory(defaultAnalyzers())

	keys := input.Analyzers
	if len(keys) == 0 {
		keys = factory.Names()
	}

	analyses, err := factory.RunAnalyzers(ctx, snapshot, keys)
	if err != nil {
		return errorResult(fmt.Errorf("run analyzers: %w", err))
	}

	rep, err := report.Assemble(report.Inputs{
		Summary:     summary,
		Walk:        walk,
		Delay:       history.ComputeDelay(walk.FirstSeen),
		Analyses:    analyses,
		Granularity: granularity,
	})
	if err != nil {
		return errorResult(fmt.Errorf("assemble report: %w", err))
	}

	s.logger.InfoContext(ctx, "analysis complete",
		"repo", input.RepoPath,
		"commits", walk.TotalCommits,
		"test_files", rep.NumTestFiles)

	return jsonResult(rep)
}

// defaultAnalyzers returns the full snapshot analyzer set.
func defaultAnalyzers() []analyze.Analyzer {
	return []analyze.Analyzer{
		testtypes.NewAnalyzer(),
		doubles.NewAnalyzer(),
		smells.NewAnalyzer(),
		flaky.NewAnalyzer(),
		funccov.NewAnalyzer(),
	}
}

// validateRepoPath validates the repo_path tool parameter.
func validateRepoPath(repoPath string) error {
	if repoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repoPath) {
		return ErrRepoPathNotAbsolute
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, repoPath)
	}

	gitDir := filepath.Join(repoPath, ".git")

	_, err = os.Stat(gitDir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, repoPath)
	}

	return nil
}
