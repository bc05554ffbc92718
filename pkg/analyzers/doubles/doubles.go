// Package doubles counts test double usage (mocks, spies, stubs, fakes and
// dummies) across a repository's test files.
package doubles

import (
	"strings"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// Count keys emitted in the report.
const (
	KeyMocks   = "mocks"
	KeySpies   = "spies"
	KeyStubs   = "stubs"
	KeyFakes   = "fakes"
	KeyDummies = "dummies"
)

const wrapsKeyword = "wraps"

// Creator vocabularies and name markers, matched case-insensitively.
var (
	mockCreators = map[string]bool{
		"mock":               true,
		"magicmock":          true,
		"asynctestmock":      true,
		"asynctestmagicmock": true,
		"asyncmock":          true,
		"autospec":           true,
		"create_autospec":    true,
		"patch":              true,
	}

	spyCreators = map[string]bool{
		"patch":        true,
		"patch.object": true,
		"spy":          true,
	}

	mockModules = map[string]bool{
		"unittest.mock": true,
		"mock":          true,
	}

	fakeMarkers  = []string{"fake"}
	stubMarkers  = []string{"stub"}
	dummyMarkers = []string{"dummy", "placeholder", "unused"}
)

// Analyzer counts test doubles in test files.
type Analyzer struct{}

// NewAnalyzer creates a test double analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name returns the analyzer name.
func (a *Analyzer) Name() string {
	return "test_doubles"
}

// Description returns the analyzer description.
func (a *Analyzer) Description() string {
	return "Counts mocks, spies, stubs, fakes and dummies in test files"
}

// Analyze sums the five double counts over every test file in the snapshot.
func (a *Analyzer) Analyze(snapshot *analyze.Snapshot) (analyze.Report, error) {
	counts := fileCounts{}

	for _, f := range snapshot.TestFiles() {
		counts = counts.add(countFile(f.Parsed))
	}

	return analyze.Report{
		KeyMocks:   counts.mocks,
		KeySpies:   counts.spies,
		KeyStubs:   counts.stubs,
		KeyFakes:   counts.fakes,
		KeyDummies: counts.dummies,
	}, nil
}

type fileCounts struct {
	mocks   int
	spies   int
	stubs   int
	fakes   int
	dummies int
}

func (c fileCounts) add(other fileCounts) fileCounts {
	return fileCounts{
		mocks:   c.mocks + other.mocks,
		spies:   c.spies + other.spies,
		stubs:   c.stubs + other.stubs,
		fakes:   c.fakes + other.fakes,
		dummies: c.dummies + other.dummies,
	}
}

// countFile computes the double counts for one parsed file.
func countFile(file *pysrc.File) fileCounts {
	counts := fileCounts{}
	aliases := mockAliases(file)

	counts.mocks += countMockImports(file)

	for _, call := range file.Calls {
		creator, resolved := classifyCall(call, aliases)
		if !creator {
			continue
		}

		if strings.HasPrefix(resolved, "patch") && hasWrapsKeyword(call) {
			counts.spies++
		} else {
			counts.mocks++
		}
	}

	for _, fn := range file.Functions {
		if containsMarker(fn.Name, stubMarkers) && fn.ConstantReturn {
			counts.stubs++
		}

		for _, param := range fn.Params {
			if containsMarker(param, dummyMarkers) {
				counts.dummies++
			}
		}
	}

	for _, cls := range file.Classes {
		if containsMarker(cls.Name, fakeMarkers) && hasRealMethod(cls) {
			counts.fakes++
		}
	}

	for _, assign := range file.Assignments {
		if assign.ConstantValue && containsMarker(assign.Target, dummyMarkers) {
			counts.dummies++
		}
	}

	return counts
}

// mockAliases builds the local binding table for the mocking module from the
// file's top level import statements. Keys are binding names as written,
// values are the lowercased imported names.
func mockAliases(file *pysrc.File) map[string]string {
	aliases := make(map[string]string)

	for _, imp := range file.Imports {
		if !imp.TopLevel {
			continue
		}

		if imp.From {
			if !mockModules[strings.ToLower(imp.Module)] {
				continue
			}

			for _, name := range imp.Names {
				aliases[name.Binding()] = strings.ToLower(name.Name)
			}

			continue
		}

		for _, name := range imp.Names {
			if mockModules[strings.ToLower(name.Name)] {
				aliases[name.Binding()] = strings.ToLower(name.Name)
			}
		}
	}

	return aliases
}

// countMockImports counts imports of the mocking module anywhere in the file.
func countMockImports(file *pysrc.File) int {
	count := 0

	for _, imp := range file.Imports {
		if imp.From {
			if mockModules[strings.ToLower(imp.Module)] {
				count += len(imp.Names)
			}

			continue
		}

		for _, name := range imp.Names {
			if mockModules[strings.ToLower(name.Name)] {
				count++
			}
		}
	}

	return count
}

// classifyCall decides whether a call creates a test double and returns the
// resolved creator name used for the spy sub-classification.
func classifyCall(call pysrc.Call, aliases map[string]string) (bool, string) {
	if call.Name == "" {
		return false, ""
	}

	resolved := strings.ToLower(call.Name)
	if target, ok := aliases[call.Name]; ok {
		resolved = target
	}

	if mockCreators[resolved] || spyCreators[resolved] {
		return true, resolved
	}

	if !call.Dotted || call.Receiver == "" {
		return false, ""
	}

	dotted := strings.ToLower(call.Receiver) + "." + strings.ToLower(call.Name)
	if spyCreators[dotted] {
		return true, dotted
	}

	// A call through a module alias counts regardless of the method name.
	if target, ok := aliases[call.Receiver]; ok && mockModules[target] {
		return true, resolved
	}

	return false, ""
}

func hasWrapsKeyword(call pysrc.Call) bool {
	for _, kw := range call.Keywords {
		if strings.ToLower(kw) == wrapsKeyword {
			return true
		}
	}

	return false
}

// hasRealMethod reports whether the class has at least one method whose body
// is not exclusively no-op placeholders.
func hasRealMethod(cls pysrc.Class) bool {
	for _, m := range cls.Methods {
		if !m.BodyOnlyPass {
			return true
		}
	}

	return false
}

func containsMarker(name string, markers []string) bool {
	lowered := strings.ToLower(name)

	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}
