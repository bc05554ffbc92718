package history

import (
	"time"

	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/forge"
	"github.com/Sumatoshi-tech/testevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/testevo/pkg/timeseries"
)

// Metric keys shared by the line and file-count measurement series.
const (
	MetricCodeLines = "code_lines"
	MetricTestLines = "test_lines"
	MetricProdFiles = "prod_files"
	MetricTestFiles = "test_files"
)

// CommitMeasurement is one dated line-change measurement: a commit's or a
// pull request's insertions+deletions bucketed by file role.
type CommitMeasurement struct {
	Date      time.Time `json:"date"`
	CodeLines int       `json:"code_lines"`
	TestLines int       `json:"test_lines"`
}

// Measurement converts to the aggregation input form.
func (m CommitMeasurement) Measurement() timeseries.Measurement {
	return timeseries.Measurement{
		Date: m.Date,
		Values: map[string]float64{
			MetricCodeLines: float64(m.CodeLines),
			MetricTestLines: float64(m.TestLines),
		},
	}
}

// SnapshotMeasurement is one dated file-count measurement: the full tree of
// a commit classified into production and test files.
type SnapshotMeasurement struct {
	Date      time.Time `json:"date"`
	ProdFiles int       `json:"prod_files"`
	TestFiles int       `json:"test_files"`
}

// Measurement converts to the aggregation input form.
func (m SnapshotMeasurement) Measurement() timeseries.Measurement {
	return timeseries.Measurement{
		Date: m.Date,
		Values: map[string]float64{
			MetricProdFiles: float64(m.ProdFiles),
			MetricTestFiles: float64(m.TestFiles),
		},
	}
}

// CommitMeasurements converts a slice for aggregation.
func CommitMeasurements(in []CommitMeasurement) []timeseries.Measurement {
	out := make([]timeseries.Measurement, 0, len(in))
	for _, m := range in {
		out = append(out, m.Measurement())
	}

	return out
}

// SnapshotMeasurements converts a slice for aggregation.
func SnapshotMeasurements(in []SnapshotMeasurement) []timeseries.Measurement {
	out := make([]timeseries.Measurement, 0, len(in))
	for _, m := range in {
		out = append(out, m.Measurement())
	}

	return out
}

// PullRequestStats folds pull requests into dated line measurements, each
// file's additions+deletions bucketed through the role classifier.
func PullRequestStats(prs []forge.PullRequest) []CommitMeasurement {
	out := make([]CommitMeasurement, 0, len(prs))

	for _, pr := range prs {
		m := CommitMeasurement{Date: pr.Date()}

		for _, f := range pr.Files {
			changed := f.Additions + f.Deletions

			if classify.IsTestPath(f.Path) {
				m.TestLines += changed
			} else {
				m.CodeLines += changed
			}
		}

		out = append(out, m)
	}

	return out
}

// PathDate records when a path was first seen in the history walk.
type PathDate struct {
	Path string    `json:"path"`
	Date time.Time `json:"date"`
}

// FirstSeen holds first-appearance dates per path, bucketed by role, in
// chronological first-seen order.
type FirstSeen struct {
	Production []PathDate `json:"production"`
	Test       []PathDate `json:"test"`

	prodIndex map[string]struct{}
	testIndex map[string]struct{}
}

// record notes the first appearance of every changed path.
func (f *FirstSeen) record(changes gitlib.Changes, when time.Time) {
	if f.prodIndex == nil {
		f.prodIndex = make(map[string]struct{})
		f.testIndex = make(map[string]struct{})
	}

	for _, change := range changes {
		path := change.Path()

		switch classify.PathRole(path) {
		case classify.RoleTest:
			if _, seen := f.testIndex[path]; !seen {
				f.testIndex[path] = struct{}{}
				f.Test = append(f.Test, PathDate{Path: path, Date: when})
			}
		case classify.RoleProduction:
			if _, seen := f.prodIndex[path]; !seen {
				f.prodIndex[path] = struct{}{}
				f.Production = append(f.Production, PathDate{Path: path, Date: when})
			}
		case classify.RoleIgnored:
		}
	}
}

// WalkResult is everything one pass over the commit history yields.
// It serializes cleanly so scan caches can store it as-is.
type WalkResult struct {
	TotalCommits int                   `json:"total_commits"`
	CommitStats  []CommitMeasurement   `json:"commit_stats"`
	FileStats    []SnapshotMeasurement `json:"file_stats"`
	FirstSeen    FirstSeen             `json:"first_seen"`
}
