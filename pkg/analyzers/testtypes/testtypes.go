// Package testtypes classifies test files as unit, integration or
// end-to-end by the libraries they import.
package testtypes

import (
	"strings"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// Category keys emitted in the report.
const (
	CategoryUnit        = "unit"
	CategoryIntegration = "integration"
	CategoryE2E         = "e2e"
	CategoryUnknown     = "unknown"
)

// Import vocabularies checked in precedence order. A file importing both a
// test framework and an HTTP client is still a unit test: framework presence
// dominates.
var (
	frameworkImports = map[string]bool{
		"unittest": true,
		"pytest":   true,
	}

	integrationImports = map[string]bool{
		"requests":   true,
		"httpx":      true,
		"socket":     true,
		"docker":     true,
		"psycopg2":   true,
		"sqlalchemy": true,
	}

	e2eImports = map[string]bool{
		"selenium":   true,
		"playwright": true,
	}
)

// Analyzer classifies every test file by its imports.
type Analyzer struct{}

// NewAnalyzer creates a test type analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name returns the analyzer name.
func (a *Analyzer) Name() string {
	return "test_types"
}

// Description returns the analyzer description.
func (a *Analyzer) Description() string {
	return "Classifies test files as unit, integration, e2e or unknown by their imports"
}

// Analyze counts test files per category.
func (a *Analyzer) Analyze(snapshot *analyze.Snapshot) (analyze.Report, error) {
	counts := map[string]int{
		CategoryUnit:        0,
		CategoryIntegration: 0,
		CategoryE2E:         0,
		CategoryUnknown:     0,
	}

	for _, f := range snapshot.TestFiles() {
		counts[classifyFile(f.Parsed)]++
	}

	return analyze.Report{
		CategoryUnit:        counts[CategoryUnit],
		CategoryIntegration: counts[CategoryIntegration],
		CategoryE2E:         counts[CategoryE2E],
		CategoryUnknown:     counts[CategoryUnknown],
	}, nil
}

func classifyFile(file *pysrc.File) string {
	roots := importRoots(file)

	switch {
	case intersects(roots, frameworkImports):
		return CategoryUnit
	case intersects(roots, integrationImports):
		return CategoryIntegration
	case intersects(roots, e2eImports):
		return CategoryE2E
	default:
		return CategoryUnknown
	}
}

// importRoots collects the root package name of every import in the file.
func importRoots(file *pysrc.File) map[string]bool {
	roots := make(map[string]bool)

	for _, imp := range file.Imports {
		if imp.From {
			if imp.Module != "" {
				roots[rootName(imp.Module)] = true
			}

			continue
		}

		for _, name := range imp.Names {
			roots[rootName(name.Name)] = true
		}
	}

	return roots
}

func rootName(module string) string {
	root, _, _ := strings.Cut(module, ".")

	return root
}

func intersects(roots, vocabulary map[string]bool) bool {
	for root := range roots {
		if vocabulary[root] {
			return true
		}
	}

	return false
}
