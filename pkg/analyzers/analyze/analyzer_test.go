package analyze_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/classify"
)

var errBoom = errors.New("boom")

type stubAnalyzer struct {
	name   string
	report analyze.Report
	err    error
}

func (s *stubAnalyzer) Name() string        { return s.name }
func (s *stubAnalyzer) Description() string { return "stub analyzer" }

func (s *stubAnalyzer) Analyze(_ *analyze.Snapshot) (analyze.Report, error) {
	return s.report, s.err
}

func TestFactory_RunAnalyzer(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "alpha", report: analyze.Report{"value": 1}},
	})

	report, err := factory.RunAnalyzer("alpha", &analyze.Snapshot{})
	require.NoError(t, err)
	require.Equal(t, analyze.Report{"value": 1}, report)

	_, err = factory.RunAnalyzer("missing", &analyze.Snapshot{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestFactory_RunAnalyzers(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "alpha", report: analyze.Report{"a": 1}},
		&stubAnalyzer{name: "beta", report: analyze.Report{"b": 2}},
		&stubAnalyzer{name: "gamma", report: analyze.Report{"c": 3}},
	})

	combined, err := factory.RunAnalyzers(context.Background(), &analyze.Snapshot{}, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, combined, 3)
	require.Equal(t, analyze.Report{"a": 1}, combined["alpha"])
	require.Equal(t, analyze.Report{"b": 2}, combined["beta"])
	require.Equal(t, analyze.Report{"c": 3}, combined["gamma"])
}

func TestFactory_RunAnalyzers_UnknownName(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "alpha"},
	})

	_, err := factory.RunAnalyzers(context.Background(), &analyze.Snapshot{}, []string{"alpha", "nope"})
	require.Error(t, err)
}

func TestFactory_RunAnalyzers_PropagatesFailure(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "alpha", report: analyze.Report{"a": 1}},
		&stubAnalyzer{name: "broken", err: errBoom},
	})

	_, err := factory.RunAnalyzers(context.Background(), &analyze.Snapshot{}, []string{"alpha", "broken"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}

func TestFactory_RunAnalyzers_Sequential(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "alpha", report: analyze.Report{"a": 1}},
		&stubAnalyzer{name: "beta", report: analyze.Report{"b": 2}},
	}).WithMaxParallelism(1)

	combined, err := factory.RunAnalyzers(context.Background(), &analyze.Snapshot{}, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, combined, 2)
}

func TestFactory_RunAnalyzers_CanceledContext(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "alpha", report: analyze.Report{"a": 1}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := factory.RunAnalyzers(ctx, &analyze.Snapshot{}, []string{"alpha"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFactory_Names(t *testing.T) {
	t.Parallel()

	factory := analyze.NewFactory([]analyze.Analyzer{
		&stubAnalyzer{name: "zeta"},
		&stubAnalyzer{name: "alpha"},
	})

	require.Equal(t, []string{"alpha", "zeta"}, factory.Names())
}

func TestSnapshot_RoleFilters(t *testing.T) {
	t.Parallel()

	snapshot := &analyze.Snapshot{Files: []analyze.SourceFile{
		{Path: "pkg/app.py", Role: classify.RoleProduction},
		{Path: "tests/test_app.py", Role: classify.RoleTest},
		{Path: "README.md", Role: classify.RoleIgnored},
	}}

	prod := snapshot.ProductionFiles()
	require.Len(t, prod, 1)
	require.Equal(t, "pkg/app.py", prod[0].Path)

	tests := snapshot.TestFiles()
	require.Len(t, tests, 1)
	require.Equal(t, "tests/test_app.py", tests[0].Path)
}
