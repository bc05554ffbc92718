// Package funccov estimates how many production functions are exercised by
// unit tests. Coverage here is a name-matching heuristic over raw test
// sources, not an instrumented result: short or common function names
// produce known false positives.
package funccov

import (
	"strings"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// Count keys emitted in the report.
const (
	KeyTotalFunctions  = "total_functions"
	KeyTestedFunctions = "tested_functions"
)

// unitTestImports qualify a file as a unit test for the coverage search.
// Exact module names only: importing unittest.mock alone does not qualify.
var unitTestImports = map[string]bool{
	"unittest": true,
	"pytest":   true,
}

// Analyzer estimates function coverage by substring search.
type Analyzer struct{}

// NewAnalyzer creates a function coverage analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name returns the analyzer name.
func (a *Analyzer) Name() string {
	return "function_coverage"
}

// Description returns the analyzer description.
func (a *Analyzer) Description() string {
	return "Estimates how many production function names appear in unit test sources"
}

// Analyze collects distinct production function names, then marks each name
// tested when it appears as a substring of any unit test file's source.
func (a *Analyzer) Analyze(snapshot *analyze.Snapshot) (analyze.Report, error) {
	prodFunctions := make(map[string]bool)

	for _, f := range snapshot.ProductionFiles() {
		for _, fn := range f.Parsed.Functions {
			if fn.Name != "" {
				prodFunctions[fn.Name] = true
			}
		}
	}

	sources := unitTestSources(snapshot)

	tested := 0

	for name := range prodFunctions {
		for _, source := range sources {
			if strings.Contains(source, name) {
				tested++

				break
			}
		}
	}

	return analyze.Report{
		KeyTotalFunctions:  len(prodFunctions),
		KeyTestedFunctions: tested,
	}, nil
}

// unitTestSources returns the raw text of every file importing a recognized
// unit test framework, regardless of the file's role.
func unitTestSources(snapshot *analyze.Snapshot) []string {
	var sources []string

	for _, f := range snapshot.Files {
		if isUnitTestFile(f.Parsed) {
			sources = append(sources, string(f.Parsed.Source))
		}
	}

	return sources
}

func isUnitTestFile(file *pysrc.File) bool {
	for _, imp := range file.Imports {
		if imp.From {
			if unitTestImports[imp.Module] {
				return true
			}

			continue
		}

		for _, name := range imp.Names {
			if unitTestImports[name.Name] {
				return true
			}
		}
	}

	return false
}
