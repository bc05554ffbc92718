// Package flaky counts nondeterminism markers in test files: sleeps,
// randomness and current-time reads. The tallies are a flakiness risk proxy,
// not a flaky-test finder.
package flaky

import (
	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// Indicator keys emitted in the report.
const (
	KeyTimeSleep   = "time_sleep"
	KeyRandomUsage = "random_usage"
	KeyDatetimeNow = "datetime_now"
)

// indicator pairs a report key with the call predicate that detects it.
// Indicators run in order against every call; one call can match several.
type indicator struct {
	key     string
	matches func(call pysrc.Call) bool
}

var indicators = []indicator{
	{
		key: KeyTimeSleep,
		matches: func(call pysrc.Call) bool {
			if call.Dotted {
				return call.Receiver == "time" && call.Name == "sleep"
			}

			return call.Name == "sleep"
		},
	},
	{
		key: KeyRandomUsage,
		matches: func(call pysrc.Call) bool {
			if call.Dotted {
				return call.Receiver == "random"
			}

			return call.Name == "random" || call.Name == "randint"
		},
	},
	{
		key: KeyDatetimeNow,
		matches: func(call pysrc.Call) bool {
			return call.Dotted && call.Receiver == "datetime" && call.Name == "now"
		},
	},
}

// Analyzer counts flaky indicators in test files.
type Analyzer struct{}

// NewAnalyzer creates a flaky indicator analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name returns the analyzer name.
func (a *Analyzer) Name() string {
	return "flaky_tests"
}

// Description returns the analyzer description.
func (a *Analyzer) Description() string {
	return "Counts sleep, randomness and current-time calls in test files"
}

// Analyze tallies each indicator occurrence across every test file. Counts
// are per occurrence, not per file.
func (a *Analyzer) Analyze(snapshot *analyze.Snapshot) (analyze.Report, error) {
	counts := map[string]int{
		KeyTimeSleep:   0,
		KeyRandomUsage: 0,
		KeyDatetimeNow: 0,
	}

	for _, f := range snapshot.TestFiles() {
		for _, call := range f.Parsed.Calls {
			for _, ind := range indicators {
				if ind.matches(call) {
					counts[ind.key]++
				}
			}
		}
	}

	return analyze.Report{
		KeyTimeSleep:   counts[KeyTimeSleep],
		KeyRandomUsage: counts[KeyRandomUsage],
		KeyDatetimeNow: counts[KeyDatetimeNow],
	}, nil
}
