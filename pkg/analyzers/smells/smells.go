// Package smells detects structural anti-patterns in test files: files with
// no test functions, files with no assertions, and setup functions that are
// defined but never called.
package smells

import (
	"strings"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// Smell keys emitted in the report.
const (
	KeyEmptyTests  = "empty_tests"
	KeyNoAssert    = "no_assert"
	KeyUnusedSetup = "unused_setup"
)

const (
	testFunctionPrefix = "test"
	assertCallPrefix   = "assert"
)

// setupNames is the fixture vocabulary shared by the unittest and pytest
// conventions.
var setupNames = map[string]bool{
	"setUp":           true,
	"tearDown":        true,
	"setup_method":    true,
	"teardown_method": true,
}

// Analyzer counts test smells across test files.
type Analyzer struct{}

// NewAnalyzer creates a test smell analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name returns the analyzer name.
func (a *Analyzer) Name() string {
	return "test_smells"
}

// Description returns the analyzer description.
func (a *Analyzer) Description() string {
	return "Counts test files with no tests, no assertions or unused setup functions"
}

// Analyze increments each smell counter once per test file exhibiting it.
// The three checks are independent: one file can add to all three.
func (a *Analyzer) Analyze(snapshot *analyze.Snapshot) (analyze.Report, error) {
	emptyTests := 0
	noAssert := 0
	unusedSetup := 0

	for _, f := range snapshot.TestFiles() {
		if !hasTestFunction(f.Parsed) {
			emptyTests++
		}

		if !hasAssertion(f.Parsed) {
			noAssert++
		}

		if hasUnusedSetup(f.Parsed) {
			unusedSetup++
		}
	}

	return analyze.Report{
		KeyEmptyTests:  emptyTests,
		KeyNoAssert:    noAssert,
		KeyUnusedSetup: unusedSetup,
	}, nil
}

func hasTestFunction(file *pysrc.File) bool {
	for _, fn := range file.Functions {
		if strings.HasPrefix(fn.Name, testFunctionPrefix) {
			return true
		}
	}

	return false
}

// hasAssertion accepts either a language-level assert statement or a method
// call whose attribute name begins with "assert", which covers the
// self.assertEqual style of the unittest framework.
func hasAssertion(file *pysrc.File) bool {
	if file.AssertCount > 0 {
		return true
	}

	for _, call := range file.Calls {
		if call.Dotted && strings.HasPrefix(call.Name, assertCallPrefix) {
			return true
		}
	}

	return false
}

// hasUnusedSetup reports whether the file defines at least one fixture
// function and none of the defined fixture names is ever called directly.
// Files without fixture definitions never exhibit this smell.
func hasUnusedSetup(file *pysrc.File) bool {
	defined := false

	for _, fn := range file.Functions {
		if setupNames[fn.Name] {
			defined = true

			break
		}
	}

	if !defined {
		return false
	}

	for _, call := range file.Calls {
		if !call.Dotted && setupNames[call.Name] {
			return false
		}
	}

	return true
}
