package testtypes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/testtypes"
	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

func testFile(t *testing.T, path, source string) analyze.SourceFile {
	t.Helper()

	parsed, err := pysrc.NewParser().Parse(context.Background(), path, []byte(source))
	require.NoError(t, err)

	return analyze.SourceFile{Path: path, Role: classify.PathRole(path), Parsed: parsed}
}

func TestAnalyze_Categories(t *testing.T) {
	t.Parallel()

	snapshot := &analyze.Snapshot{Files: []analyze.SourceFile{
		testFile(t, "tests/test_unit.py", "import unittest\nimport requests\n"),
		testFile(t, "tests/test_api.py", "import requests\n"),
		testFile(t, "tests/test_browser.py", "from selenium import webdriver\n"),
		testFile(t, "tests/test_misc.py", "import os\n"),
		testFile(t, "app/main.py", "import requests\n"),
	}}

	report, err := testtypes.NewAnalyzer().Analyze(snapshot)
	require.NoError(t, err)
	require.Equal(t, analyze.Report{
		"unit":        1,
		"integration": 1,
		"e2e":         1,
		"unknown":     1,
	}, report)
}

func TestAnalyze_FrameworkDominates(t *testing.T) {
	t.Parallel()

	source := "import pytest\nimport httpx\nfrom selenium import webdriver\n"
	snapshot := &analyze.Snapshot{Files: []analyze.SourceFile{
		testFile(t, "tests/test_all.py", source),
	}}

	report, err := testtypes.NewAnalyzer().Analyze(snapshot)
	require.NoError(t, err)
	require.Equal(t, 1, report["unit"])
	require.Equal(t, 0, report["integration"])
	require.Equal(t, 0, report["e2e"])
}

func TestAnalyze_DottedImportRoot(t *testing.T) {
	t.Parallel()

	snapshot := &analyze.Snapshot{Files: []analyze.SourceFile{
		testFile(t, "tests/test_db.py", "import sqlalchemy.orm\n"),
		testFile(t, "tests/test_from.py", "from requests.adapters import HTTPAdapter\n"),
	}}

	report, err := testtypes.NewAnalyzer().Analyze(snapshot)
	require.NoError(t, err)
	require.Equal(t, 2, report["integration"])
}

func TestAnalyze_EmptySnapshot(t *testing.T) {
	t.Parallel()

	report, err := testtypes.NewAnalyzer().Analyze(&analyze.Snapshot{})
	require.NoError(t, err)
	require.Equal(t, analyze.Report{
		"unit":        0,
		"integration": 0,
		"e2e":         0,
		"unknown":     0,
	}, report)
}
