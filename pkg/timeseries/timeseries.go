// Package timeseries folds dated measurements into monthly or yearly
// periods. Two reduction strategies are provided: additive grouping, which
// sums metrics per period, and snapshot grouping, which carries the last
// observation forward across period gaps. They are deliberately separate
// algorithms with different contracts.
package timeseries

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInconsistentKeys reports additive input records whose metric key sets
// differ. Mixing measurement kinds in one aggregation is a programming error
// upstream, so the whole call fails instead of skipping records.
var ErrInconsistentKeys = errors.New("inconsistent metric keys")

// ErrUnknownGranularity reports an unrecognized granularity name.
var ErrUnknownGranularity = errors.New("unknown granularity")

// Granularity selects the period length used for bucketing.
type Granularity int

// Supported granularities.
const (
	Yearly Granularity = iota
	Monthly
)

const (
	yearLayout  = "2006"
	monthLayout = "2006-01"
)

// String returns the granularity name.
func (g Granularity) String() string {
	if g == Monthly {
		return "monthly"
	}

	return "yearly"
}

// ParseGranularity converts a granularity name to its value.
func ParseGranularity(name string) (Granularity, error) {
	switch name {
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	default:
		return Yearly, fmt.Errorf("%w: %q", ErrUnknownGranularity, name)
	}
}

// PeriodKey formats the period bucket a date falls into, "2006-01" for
// monthly and "2006" for yearly. Keys sort lexicographically in
// chronological order.
func (g Granularity) PeriodKey(date time.Time) string {
	if g == Monthly {
		return date.Format(monthLayout)
	}

	return date.Format(yearLayout)
}

// Measurement is one dated record of named numeric metrics.
type Measurement struct {
	Date   time.Time
	Values map[string]float64
}

// Period is one aggregated output row.
type Period struct {
	Key    string
	Values map[string]float64
}

// AggregateAdditive groups measurements by period key and sums every metric
// within each group. All records must expose the identical metric key set or
// the call fails with ErrInconsistentKeys. Output periods are sorted
// chronologically and cover only periods that have records.
func AggregateAdditive(records []Measurement, granularity Granularity) ([]Period, error) {
	if len(records) == 0 {
		return []Period{}, nil
	}

	contract := metricKeys(records[0].Values)

	for i, rec := range records[1:] {
		if !sameKeys(contract, rec.Values) {
			return nil, fmt.Errorf("%w: record %d has keys %v, expected %v",
				ErrInconsistentKeys, i+1, metricKeys(rec.Values), contract)
		}
	}

	buckets := make(map[string]map[string]float64)

	for _, rec := range records {
		key := granularity.PeriodKey(rec.Date)

		bucket, ok := buckets[key]
		if !ok {
			bucket = make(map[string]float64, len(rec.Values))
			buckets[key] = bucket
		}

		for metric, value := range rec.Values {
			bucket[metric] += value
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	periods := make([]Period, 0, len(keys))
	for _, key := range keys {
		periods = append(periods, Period{Key: key, Values: buckets[key]})
	}

	return periods, nil
}

// AggregateSnapshot orders measurements by date and emits exactly one row
// per period over the full inclusive span between the earliest and latest
// record. A period with records yields its chronologically last record; a
// period without records inherits the previous row (last observation
// carried forward); periods before the first observation yield zero values.
// The output period keys form an unbroken sequence with no gaps.
func AggregateSnapshot(records []Measurement, granularity Granularity) []Period {
	if len(records) == 0 {
		return []Period{}
	}

	ordered := make([]Measurement, len(records))
	copy(ordered, records)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	lastInPeriod := make(map[string]map[string]float64)
	for _, rec := range ordered {
		lastInPeriod[granularity.PeriodKey(rec.Date)] = rec.Values
	}

	zeroKeys := metricKeys(ordered[0].Values)
	span := periodSpan(ordered[0].Date, ordered[len(ordered)-1].Date, granularity)

	periods := make([]Period, 0, len(span))

	var carried map[string]float64

	for _, key := range span {
		if values, ok := lastInPeriod[key]; ok {
			carried = values
		}

		periods = append(periods, Period{Key: key, Values: cloneOrZero(carried, zeroKeys)})
	}

	return periods
}

// periodSpan enumerates every period key between two dates, inclusive.
func periodSpan(first, last time.Time, granularity Granularity) []string {
	if granularity == Yearly {
		keys := make([]string, 0, last.Year()-first.Year()+1)
		for year := first.Year(); year <= last.Year(); year++ {
			keys = append(keys, fmt.Sprintf("%04d", year))
		}

		return keys
	}

	cursor := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)

	var keys []string

	for !cursor.After(end) {
		keys = append(keys, cursor.Format(monthLayout))
		cursor = cursor.AddDate(0, 1, 0)
	}

	return keys
}

func metricKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func sameKeys(contract []string, values map[string]float64) bool {
	if len(contract) != len(values) {
		return false
	}

	for _, key := range contract {
		if _, ok := values[key]; !ok {
			return false
		}
	}

	return true
}

func cloneOrZero(values map[string]float64, zeroKeys []string) map[string]float64 {
	out := make(map[string]float64, len(zeroKeys))

	if values == nil {
		for _, key := range zeroKeys {
			out[key] = 0
		}

		return out
	}

	for key, value := range values {
		out[key] = value
	}

	return out
}
