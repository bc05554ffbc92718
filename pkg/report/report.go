// Package report assembles scan outputs into the serializable report
// document: local summary, history totals, analyzer counts, the delay
// metric and the aggregated evolution series.
package report

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/doubles"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/flaky"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/funccov"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/smells"
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/testtypes"
	"github.com/Sumatoshi-tech/testevo/pkg/history"
	"github.com/Sumatoshi-tech/testevo/pkg/timeseries"
)

// Analyzer section names, equal to the analyzer Name values.
const (
	SectionTestTypes        = "test_types"
	SectionTestDoubles      = "test_doubles"
	SectionTestSmells       = "test_smells"
	SectionFlakyTests       = "flaky_tests"
	SectionFunctionCoverage = "function_coverage"
)

// TypeCounts buckets test files by kind.
type TypeCounts struct {
	Unit        int `json:"unit" yaml:"unit"`
	Integration int `json:"integration" yaml:"integration"`
	E2E         int `json:"e2e" yaml:"e2e"`
	Unknown     int `json:"unknown" yaml:"unknown"`
}

// DoubleCounts tallies test double usage.
type DoubleCounts struct {
	Mocks   int `json:"mocks" yaml:"mocks"`
	Spies   int `json:"spies" yaml:"spies"`
	Stubs   int `json:"stubs" yaml:"stubs"`
	Fakes   int `json:"fakes" yaml:"fakes"`
	Dummies int `json:"dummies" yaml:"dummies"`
}

// SmellCounts tallies structural test smells.
type SmellCounts struct {
	EmptyTests  int `json:"empty_tests" yaml:"empty_tests"`
	NoAssert    int `json:"no_assert" yaml:"no_assert"`
	UnusedSetup int `json:"unused_setup" yaml:"unused_setup"`
}

// FlakyCounts tallies flakiness indicators.
type FlakyCounts struct {
	TimeSleep   int `json:"time_sleep" yaml:"time_sleep"`
	RandomUsage int `json:"random_usage" yaml:"random_usage"`
	DatetimeNow int `json:"datetime_now" yaml:"datetime_now"`
}

// CoverageCounts is the function coverage estimate.
type CoverageCounts struct {
	TotalFunctions  int `json:"total_functions" yaml:"total_functions"`
	TestedFunctions int `json:"tested_functions" yaml:"tested_functions"`
}

// DelayStats is the production-to-test delay metric. AvgDelayDays is null
// when no valid pairs exist.
type DelayStats struct {
	AvgDelayDays *float64 `json:"avg_delay_days" yaml:"avg_delay_days"`
	DelayCount   int      `json:"delay_count" yaml:"delay_count"`
}

// LineRow is one aggregated period of line changes with its derived density.
type LineRow struct {
	Period      string  `json:"period" yaml:"period"`
	CodeLines   int     `json:"code_lines" yaml:"code_lines"`
	TestLines   int     `json:"test_lines" yaml:"test_lines"`
	TestDensity float64 `json:"test_density" yaml:"test_density"`
}

// FileRow is one aggregated period of file role counts.
type FileRow struct {
	Period    string `json:"period" yaml:"period"`
	ProdFiles int    `json:"prod_files" yaml:"prod_files"`
	TestFiles int    `json:"test_files" yaml:"test_files"`
}

// Report is the complete analysis document.
type Report struct {
	NumTestFiles     int            `json:"num_test_files" yaml:"num_test_files"`
	AvgTestFileLines float64        `json:"avg_test_file_lines" yaml:"avg_test_file_lines"`
	TotalCommits     int            `json:"total_commits" yaml:"total_commits"`
	TotalPRs         int            `json:"total_prs" yaml:"total_prs"`
	TotalIssues      int            `json:"total_issues" yaml:"total_issues"`
	TestTypes        TypeCounts     `json:"test_types" yaml:"test_types"`
	TestDoubles      DoubleCounts   `json:"test_doubles" yaml:"test_doubles"`
	TestSmells       SmellCounts    `json:"test_smells" yaml:"test_smells"`
	FlakyTests       FlakyCounts    `json:"flaky_tests" yaml:"flaky_tests"`
	FunctionCoverage CoverageCounts `json:"function_coverage" yaml:"function_coverage"`
	TestDelay        DelayStats     `json:"test_delay" yaml:"test_delay"`
	CommitStats      []LineRow      `json:"commit_stats" yaml:"commit_stats"`
	PRStats          []LineRow      `json:"pr_stats" yaml:"pr_stats"`
	FileStats        []FileRow      `json:"file_stats" yaml:"file_stats"`
}

// Inputs collects everything one scan produced.
type Inputs struct {
	Summary     history.LocalSummary
	Walk        *history.WalkResult
	Delay       history.Delay
	Analyses    map[string]analyze.Report
	PRStats     []history.CommitMeasurement
	TotalPRs    int
	TotalIssues int
	Granularity timeseries.Granularity
}

// Assemble merges scan outputs into a report. Absent inputs yield zero
// values; aggregation failures are the only error path.
func Assemble(in Inputs) (*Report, error) {
	walk := in.Walk
	if walk == nil {
		walk = &history.WalkResult{}
	}

	commitRows, err := lineRows(walk.CommitStats, in.Granularity)
	if err != nil {
		return nil, fmt.Errorf("aggregate commit stats: %w", err)
	}

	prRows, err := lineRows(in.PRStats, in.Granularity)
	if err != nil {
		return nil, fmt.Errorf("aggregate pull request stats: %w", err)
	}

	return &Report{
		NumTestFiles:     in.Summary.NumTestFiles,
		AvgTestFileLines: in.Summary.AvgTestFileLines,
		TotalCommits:     walk.TotalCommits,
		TotalPRs:         in.TotalPRs,
		TotalIssues:      in.TotalIssues,
		TestTypes: TypeCounts{
			Unit:        intAt(in.Analyses[SectionTestTypes], testtypes.CategoryUnit),
			Integration: intAt(in.Analyses[SectionTestTypes], testtypes.CategoryIntegration),
			E2E:         intAt(in.Analyses[SectionTestTypes], testtypes.CategoryE2E),
			Unknown:     intAt(in.Analyses[SectionTestTypes], testtypes.CategoryUnknown),
		},
		TestDoubles: DoubleCounts{
			Mocks:   intAt(in.Analyses[SectionTestDoubles], doubles.KeyMocks),
			Spies:   intAt(in.Analyses[SectionTestDoubles], doubles.KeySpies),
			Stubs:   intAt(in.Analyses[SectionTestDoubles], doubles.KeyStubs),
			Fakes:   intAt(in.Analyses[SectionTestDoubles], doubles.KeyFakes),
			Dummies: intAt(in.Analyses[SectionTestDoubles], doubles.KeyDummies),
		},
		TestSmells: SmellCounts{
			EmptyTests:  intAt(in.Analyses[SectionTestSmells], smells.KeyEmptyTests),
			NoAssert:    intAt(in.Analyses[SectionTestSmells], smells.KeyNoAssert),
			UnusedSetup: intAt(in.Analyses[SectionTestSmells], smells.KeyUnusedSetup),
		},
		FlakyTests: FlakyCounts{
			TimeSleep:   intAt(in.Analyses[SectionFlakyTests], flaky.KeyTimeSleep),
			RandomUsage: intAt(in.Analyses[SectionFlakyTests], flaky.KeyRandomUsage),
			DatetimeNow: intAt(in.Analyses[SectionFlakyTests], flaky.KeyDatetimeNow),
		},
		FunctionCoverage: CoverageCounts{
			TotalFunctions:  intAt(in.Analyses[SectionFunctionCoverage], funccov.KeyTotalFunctions),
			TestedFunctions: intAt(in.Analyses[SectionFunctionCoverage], funccov.KeyTestedFunctions),
		},
		TestDelay: DelayStats{
			AvgDelayDays: in.Delay.AvgDays,
			DelayCount:   in.Delay.Count,
		},
		CommitStats: commitRows,
		PRStats:     prRows,
		FileStats:   fileRows(walk.FileStats, in.Granularity),
	}, nil
}

// Parse decodes a serialized JSON report.
func Parse(data []byte) (*Report, error) {
	var r Report

	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}

	return &r, nil
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	return out, nil
}

// YAML renders the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	return out, nil
}

func lineRows(measurements []history.CommitMeasurement, granularity timeseries.Granularity) ([]LineRow, error) {
	periods, err := timeseries.AggregateAdditive(history.CommitMeasurements(measurements), granularity)
	if err != nil {
		return nil, err
	}

	rows := make([]LineRow, 0, len(periods))

	for _, p := range periods {
		code := p.Values[history.MetricCodeLines]
		test := p.Values[history.MetricTestLines]

		rows = append(rows, LineRow{
			Period:      p.Key,
			CodeLines:   int(code),
			TestLines:   int(test),
			TestDensity: density(test, code),
		})
	}

	return rows, nil
}

func fileRows(measurements []history.SnapshotMeasurement, granularity timeseries.Granularity) []FileRow {
	periods := timeseries.AggregateSnapshot(history.SnapshotMeasurements(measurements), granularity)

	rows := make([]FileRow, 0, len(periods))

	for _, p := range periods {
		rows = append(rows, FileRow{
			Period:    p.Key,
			ProdFiles: int(p.Values[history.MetricProdFiles]),
			TestFiles: int(p.Values[history.MetricTestFiles]),
		})
	}

	return rows
}

// density is test lines over code lines, zero for an empty denominator.
func density(testLines, codeLines float64) float64 {
	if codeLines == 0 {
		return 0
	}

	return testLines / codeLines
}

// intAt reads an integer metric from an analyzer report section, tolerating
// the float64 encoding a JSON round trip produces.
func intAt(section analyze.Report, key string) int {
	switch v := section[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
