package smells_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/smells"
	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

func analyzeSource(t *testing.T, source string) analyze.Report {
	t.Helper()

	parsed, err := pysrc.NewParser().Parse(context.Background(), "tests/test_sample.py", []byte(source))
	require.NoError(t, err)

	snapshot := &analyze.Snapshot{Files: []analyze.SourceFile{
		{Path: "tests/test_sample.py", Role: classify.RoleTest, Parsed: parsed},
	}}

	report, err := smells.NewAnalyzer().Analyze(snapshot)
	require.NoError(t, err)

	return report
}

func TestAnalyze_CleanTestFile(t *testing.T) {
	t.Parallel()

	source := `def test_addition():
    assert 1 + 1 == 2
`
	report := analyzeSource(t, source)
	require.Equal(t, analyze.Report{
		"empty_tests":  0,
		"no_assert":    0,
		"unused_setup": 0,
	}, report)
}

func TestAnalyze_EmptyTests(t *testing.T) {
	t.Parallel()

	source := `def helper():
    assert True
`
	report := analyzeSource(t, source)
	require.Equal(t, 1, report["empty_tests"])
	require.Equal(t, 0, report["no_assert"])
}

func TestAnalyze_NoAssert(t *testing.T) {
	t.Parallel()

	source := `def test_nothing():
    value = compute()
    print(value)
`
	report := analyzeSource(t, source)
	require.Equal(t, 1, report["no_assert"])
	require.Equal(t, 0, report["empty_tests"])
}

func TestAnalyze_FrameworkAssertCallCounts(t *testing.T) {
	t.Parallel()

	source := `class ThingTest(unittest.TestCase):
    def test_value(self):
        self.assertEqual(compute(), 4)
`
	report := analyzeSource(t, source)
	require.Equal(t, 0, report["no_assert"])
}

func TestAnalyze_BareAssertCallDoesNotCount(t *testing.T) {
	t.Parallel()

	source := `def test_value():
    assert_equal(compute(), 4)
`
	report := analyzeSource(t, source)
	require.Equal(t, 1, report["no_assert"])
}

func TestAnalyze_UnusedSetup(t *testing.T) {
	t.Parallel()

	source := `def setUp():
    prepare()

def test_thing():
    assert compute() == 1
`
	report := analyzeSource(t, source)
	require.Equal(t, 1, report["unused_setup"])
}

func TestAnalyze_CalledSetupIsNotASmell(t *testing.T) {
	t.Parallel()

	source := `def setup_method():
    prepare()

def test_thing():
    setup_method()
    assert compute() == 1
`
	report := analyzeSource(t, source)
	require.Equal(t, 0, report["unused_setup"])
}

func TestAnalyze_MethodCallDoesNotCountAsSetupUsage(t *testing.T) {
	t.Parallel()

	source := `class ThingTest(unittest.TestCase):
    def setUp(self):
        self.value = 1

    def test_thing(self):
        self.setUp()
        self.assertEqual(self.value, 1)
`
	report := analyzeSource(t, source)
	require.Equal(t, 1, report["unused_setup"])
}

func TestAnalyze_NoSetupDefinedNeverSmells(t *testing.T) {
	t.Parallel()

	source := `def test_thing():
    assert True
`
	report := analyzeSource(t, source)
	require.Equal(t, 0, report["unused_setup"])
}

func TestAnalyze_AllThreeSmellsAtOnce(t *testing.T) {
	t.Parallel()

	source := `def setUp():
    prepare()

def helper():
    print("no asserts here")
`
	report := analyzeSource(t, source)
	require.Equal(t, analyze.Report{
		"empty_tests":  1,
		"no_assert":    1,
		"unused_setup": 1,
	}, report)
}
