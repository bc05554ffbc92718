package history

import (
	"strings"
	"time"

	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/mathutil"
)

// Delay is the production-to-test delay metric.
type Delay struct {
	// AvgDays is the mean delay in whole days rounded to 2 decimals,
	// nil when no valid pairs exist.
	AvgDays *float64
	// Count is the number of valid pairs.
	Count int
}

// ComputeDelay pairs each first-seen test file with the first production
// file its name points at (test_ prefix stripped, or _test.py suffix
// restored to .py) and averages the whole-day deltas. Pairs where the test
// predates its production file are excluded.
func ComputeDelay(firstSeen FirstSeen) Delay {
	var deltas []float64

	for _, test := range firstSeen.Test {
		prodName, ok := classify.TestBaseName(baseName(test.Path))
		if !ok {
			continue
		}

		for _, prod := range firstSeen.Production {
			if strings.ToLower(baseName(prod.Path)) != prodName {
				continue
			}

			days := wholeDays(test.Date.Sub(prod.Date))
			if days >= 0 {
				deltas = append(deltas, float64(days))
			}

			break
		}
	}

	if len(deltas) == 0 {
		return Delay{}
	}

	avg := mathutil.RoundTo(mathutil.Mean(deltas), 2)

	return Delay{AvgDays: &avg, Count: len(deltas)}
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}

	return path
}

// wholeDays floors the duration to whole days, so a test landing hours
// before its production file still counts as a negative delta.
func wholeDays(d time.Duration) int {
	const day = 24 * time.Hour

	days := d / day
	if d%day < 0 {
		days--
	}

	return int(days)
}
