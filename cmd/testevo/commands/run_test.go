package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/testevo/pkg/forge"
	"github.com/Sumatoshi-tech/testevo/pkg/observability"
	"github.com/Sumatoshi-tech/testevo/pkg/report"
)

// testRepo wraps an on-disk repository for command testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

// newTestRepo creates a new test repository under t.TempDir.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{t: t, path: dir, native: repo}
}

// createFile writes a file into the working directory, creating parent
// directories as needed.
func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
}

// commitAt stages all changes and creates a commit with the given author time.
func (tr *testRepo) commitAt(message string, when time.Time) {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	require.NoError(tr.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(tr.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(tr.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: when}

	var parents []*git2go.Commit

	if head, headErr := tr.native.Head(); headErr == nil {
		parent, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, parent)

		head.Free()
	}

	_, err = tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}
}

// seedFixture commits a production file and, two months later, its test.
func (tr *testRepo) seedFixture() {
	tr.t.Helper()

	tr.createFile("src/app.py", "def add(a, b):\n    return a + b\n")
	tr.commitAt("add app", time.Date(2021, time.January, 10, 12, 0, 0, 0, time.UTC))

	tr.createFile("tests/test_app.py",
		"import pytest\n\nfrom src.app import add\n\n\ndef test_add():\n    assert add(1, 2) == 3\n")
	tr.commitAt("add test", time.Date(2021, time.March, 5, 12, 0, 0, 0, time.UTC))
}

func noopObservabilityInit(_ observability.Config) (observability.Providers, error) {
	return observability.Providers{
		Shutdown: func(_ context.Context) error { return nil },
	}, nil
}

// failingForgeFetcher fails the test when the forge API is contacted.
func failingForgeFetcher(t *testing.T) forgeFetcher {
	t.Helper()

	return func(_ context.Context, _ forge.RepoRef, _ string) (forgeStats, error) {
		t.Fatal("forge fetcher should not be called")

		return forgeStats{}, nil
	}
}

func TestRunCommand_Report(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent"})

	err := command.Execute()
	require.NoError(t, err)

	var rep report.Report

	err = json.Unmarshal(out.Bytes(), &rep)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.TotalCommits)
	assert.Equal(t, 1, rep.NumTestFiles)
	assert.Equal(t, 1, rep.TestTypes.Unit)
	assert.Equal(t, 1, rep.FunctionCoverage.TotalFunctions)
	assert.Equal(t, 1, rep.FunctionCoverage.TestedFunctions)

	require.NotNil(t, rep.TestDelay.AvgDelayDays)
	assert.InDelta(t, 54.0, *rep.TestDelay.AvgDelayDays, 0.001)
	assert.Equal(t, 1, rep.TestDelay.DelayCount)

	require.Len(t, rep.CommitStats, 1)
	assert.Equal(t, "2021", rep.CommitStats[0].Period)
}

func TestRunCommand_MonthlyFlag(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent", "--monthly"})

	err := command.Execute()
	require.NoError(t, err)

	var rep report.Report

	err = json.Unmarshal(out.Bytes(), &rep)
	require.NoError(t, err)

	require.Len(t, rep.CommitStats, 2)
	assert.Equal(t, "2021-01", rep.CommitStats[0].Period)
	assert.Equal(t, "2021-03", rep.CommitStats[1].Period)

	// The snapshot series carries the last value through the empty month.
	require.Len(t, rep.FileStats, 3)
	assert.Equal(t, "2021-02", rep.FileStats[1].Period)
	assert.Equal(t, 1, rep.FileStats[1].ProdFiles)
	assert.Equal(t, 0, rep.FileStats[1].TestFiles)
}

func TestRunCommand_YAMLOutput(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent", "--yaml"})

	err := command.Execute()
	require.NoError(t, err)

	var rep report.Report

	err = yaml.Unmarshal(out.Bytes(), &rep)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.TotalCommits)
	assert.Equal(t, 1, rep.NumTestFiles)
}

func TestRunCommand_OutputFile(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	outputPath := filepath.Join(t.TempDir(), "report.json")

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent", "-o", outputPath})

	err := command.Execute()
	require.NoError(t, err)

	data, readErr := os.ReadFile(outputPath)
	require.NoError(t, readErr)

	var rep report.Report

	err = json.Unmarshal(data, &rep)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalCommits)
}

func TestRunCommand_HTMLOutput(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	htmlPath := filepath.Join(t.TempDir(), "report.html")

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent", "--html", htmlPath})

	err := command.Execute()
	require.NoError(t, err)

	data, readErr := os.ReadFile(htmlPath)
	require.NoError(t, readErr)

	html := string(data)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "echarts.min.js")
}

func TestRunCommand_ProgressOutput_DefaultEnabled(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)

	var errOut bytes.Buffer

	command.SetErr(&errOut)
	command.SetOut(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache"})

	err := command.Execute()
	require.NoError(t, err)
	require.Contains(t, errOut.String(), "progress: starting run")
	require.Contains(t, errOut.String(), "progress: history walked: commits=2")
	require.Contains(t, errOut.String(), "progress: run completed")
}

func TestRunCommand_ProgressOutput_Silent(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)

	var errOut bytes.Buffer

	command.SetErr(&errOut)
	command.SetOut(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent"})

	err := command.Execute()
	require.NoError(t, err)
	require.Empty(t, errOut.String())
}

func TestRunCommand_ProgressOutput_Quiet(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)
	command.PersistentFlags().BoolP("quiet", "q", false, "suppress output")

	var errOut bytes.Buffer

	command.SetErr(&errOut)
	command.SetOut(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "-q"})

	err := command.Execute()
	require.NoError(t, err)
	require.Empty(t, errOut.String())
}

func TestRunCommand_UnknownTarget(t *testing.T) {
	t.Parallel()

	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"/nonexistent/path/to/repo", "--no-cache", "--silent"})

	err := command.Execute()
	require.ErrorIs(t, err, ErrRepositoryLoad)
}

func TestRunCommand_ForgeSkippedForLocalPath(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	// failingForgeFetcher fails the test on any forge call.
	command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent"})

	err := command.Execute()
	require.NoError(t, err)
}

func TestRunCommand_InitializesObservability(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	var (
		initCalled bool
		seenCfg    observability.Config
	)

	captureInit := func(cfg observability.Config) (observability.Providers, error) {
		initCalled = true
		seenCfg = cfg

		return observability.Providers{
			Shutdown: func(_ context.Context) error { return nil },
		}, nil
	}

	command := newRunCommandWithDeps(failingForgeFetcher(t), captureInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent"})

	err := command.Execute()
	require.NoError(t, err)
	require.True(t, initCalled, "observability.Init should be called")
	require.Equal(t, observability.ModeCLI, seenCfg.Mode)
	require.NotEmpty(t, seenCfg.ServiceVersion, "ServiceVersion should be set")
}

func TestRunCommand_ShutdownCalledOnExit(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	var shutdownCalled bool

	command := newRunCommandWithDeps(failingForgeFetcher(t),
		func(_ observability.Config) (observability.Providers, error) {
			return observability.Providers{
				Shutdown: func(_ context.Context) error {
					shutdownCalled = true

					return nil
				},
			}, nil
		})
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent"})

	err := command.Execute()
	require.NoError(t, err)
	require.True(t, shutdownCalled, "providers.Shutdown must be called on exit")
}

func TestRunCommand_CreatesRootSpan(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	repo.seedFixture()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	command := newRunCommandWithDeps(failingForgeFetcher(t),
		func(_ observability.Config) (observability.Providers, error) {
			return observability.Providers{
				Tracer:   tp.Tracer("testevo"),
				Shutdown: func(_ context.Context) error { return nil },
			}, nil
		})
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{repo.path, "--no-cache", "--silent"})

	err := command.Execute()
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans, "root span should be exported")

	var rootAttrs map[string]any

	for _, span := range spans {
		if span.Name != "testevo.run" {
			continue
		}

		rootAttrs = make(map[string]any, len(span.Attributes))
		for _, attr := range span.Attributes {
			rootAttrs[string(attr.Key)] = attr.Value.AsInterface()
		}
	}

	require.NotNil(t, rootAttrs, "root span 'testevo.run' should exist")
	require.Contains(t, rootAttrs, "error")
	require.Equal(t, false, rootAttrs["error"], "error should be false on success")
	require.Contains(t, rootAttrs, "testevo.duration_class")
}

func TestRunCommand_CacheRoundTrip(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("TESTEVO_CACHE_DIRECTORY", cacheDir)

	repo := newTestRepo(t)
	repo.seedFixture()

	runOnce := func() string {
		command := newRunCommandWithDeps(failingForgeFetcher(t), noopObservabilityInit)

		var errOut bytes.Buffer

		command.SetErr(&errOut)
		command.SetOut(io.Discard)
		command.SetArgs([]string{repo.path})

		err := command.Execute()
		require.NoError(t, err)

		return errOut.String()
	}

	first := runOnce()
	require.NotContains(t, first, "scan cache hit")

	second := runOnce()
	require.Contains(t, second, "progress: scan cache hit")
}

func TestDurationClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"fast", 5 * time.Second, durationClassFast},
		{"normal", 30 * time.Second, durationClassNormal},
		{"slow", 2 * time.Minute, durationClassSlow},
		{"zero is fast", 0, durationClassFast},
		{"boundary fast", durationClassFastLimit - 1, durationClassFast},
		{"boundary normal", durationClassNormalLimit - 1, durationClassNormal},
		{"exact fast limit", durationClassFastLimit, durationClassNormal},
		{"exact normal limit", durationClassNormalLimit, durationClassSlow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := durationClass(tt.d)
			if got != tt.want {
				t.Fatalf("durationClass(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFlagLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    slog.Level
		verbose bool
		quiet   bool
		debug   bool
		want    slog.Level
	}{
		{name: "base preserved", base: slog.LevelInfo, want: slog.LevelInfo},
		{name: "config warn preserved", base: slog.LevelWarn, want: slog.LevelWarn},
		{name: "verbose lowers to debug", base: slog.LevelInfo, verbose: true, want: slog.LevelDebug},
		{name: "debug lowers to debug", base: slog.LevelWarn, debug: true, want: slog.LevelDebug},
		{name: "quiet raises to error", base: slog.LevelInfo, quiet: true, want: slog.LevelError},
		{name: "quiet wins over verbose", base: slog.LevelInfo, verbose: true, quiet: true, want: slog.LevelError},
		{name: "quiet wins over debug", base: slog.LevelInfo, debug: true, quiet: true, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			command := &cobra.Command{}
			command.Flags().Bool("verbose", tt.verbose, "")
			command.Flags().Bool("quiet", tt.quiet, "")

			assert.Equal(t, tt.want, flagLogLevel(command, tt.base, tt.debug))
		})
	}
}

func TestFlagLogLevel_FlagsUnregistered(t *testing.T) {
	t.Parallel()

	// Standalone commands without the persistent flags keep the base level.
	assert.Equal(t, slog.LevelInfo, flagLogLevel(&cobra.Command{}, slog.LevelInfo, false))
}
