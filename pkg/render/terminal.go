package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/testevo/pkg/report"
)

const percentScale = 100

// Summary writes the terminal summary tables for a report.
func Summary(w io.Writer, rep *report.Report) {
	heading := color.New(color.FgCyan, color.Bold)

	heading.Fprintln(w, "Test quality report")
	fmt.Fprintln(w)

	totals := newTable(w)
	totals.AppendHeader(table.Row{"Metric", "Value"})
	totals.AppendRows([]table.Row{
		{"Test files", humanize.Comma(int64(rep.NumTestFiles))},
		{"Avg test file lines", strconv.FormatFloat(rep.AvgTestFileLines, 'f', 1, 64)},
		{"Commits", humanize.Comma(int64(rep.TotalCommits))},
		{"Pull requests", humanize.Comma(int64(rep.TotalPRs))},
		{"Issues", humanize.Comma(int64(rep.TotalIssues))},
	})
	totals.Render()

	sectionTable(w, heading, "Test types", []table.Row{
		{"Unit", rep.TestTypes.Unit},
		{"Integration", rep.TestTypes.Integration},
		{"End-to-end", rep.TestTypes.E2E},
		{"Unknown", rep.TestTypes.Unknown},
	})

	sectionTable(w, heading, "Test doubles", []table.Row{
		{"Mocks", rep.TestDoubles.Mocks},
		{"Spies", rep.TestDoubles.Spies},
		{"Stubs", rep.TestDoubles.Stubs},
		{"Fakes", rep.TestDoubles.Fakes},
		{"Dummies", rep.TestDoubles.Dummies},
	})

	sectionTable(w, heading, "Test smells", []table.Row{
		{"Empty tests", rep.TestSmells.EmptyTests},
		{"No assertions", rep.TestSmells.NoAssert},
		{"Unused setup", rep.TestSmells.UnusedSetup},
	})

	sectionTable(w, heading, "Flaky indicators", []table.Row{
		{"time.sleep calls", rep.FlakyTests.TimeSleep},
		{"random usage", rep.FlakyTests.RandomUsage},
		{"datetime.now usage", rep.FlakyTests.DatetimeNow},
	})

	sectionTable(w, heading, "Function coverage", []table.Row{
		{"Total functions", humanize.Comma(int64(rep.FunctionCoverage.TotalFunctions))},
		{"Tested functions", humanize.Comma(int64(rep.FunctionCoverage.TestedFunctions))},
		{"Estimated coverage", coveragePercent(rep.FunctionCoverage)},
	})

	fmt.Fprintln(w)
	heading.Fprintln(w, "Test delay")
	fmt.Fprintln(w, delayLine(rep.TestDelay))
}

// Languages writes the head tree language breakdown, largest first.
func Languages(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	type langCount struct {
		name  string
		count int
	}

	ordered := make([]langCount, 0, len(counts))
	for name, count := range counts {
		ordered = append(ordered, langCount{name: name, count: count})
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}

		return ordered[i].name < ordered[j].name
	})

	heading := color.New(color.FgCyan, color.Bold)
	heading.Fprintln(w, "Languages")

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Language", "Files"})

	for _, lc := range ordered {
		tbl.AppendRow(table.Row{lc.name, humanize.Comma(int64(lc.count))})
	}

	tbl.Render()
}

func sectionTable(w io.Writer, heading *color.Color, title string, rows []table.Row) {
	fmt.Fprintln(w)
	heading.Fprintln(w, title)

	tbl := newTable(w)
	tbl.AppendRows(rows)
	tbl.Render()
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func coveragePercent(c report.CoverageCounts) string {
	if c.TotalFunctions == 0 {
		return "n/a"
	}

	ratio := float64(c.TestedFunctions) / float64(c.TotalFunctions)

	return fmt.Sprintf("%.1f%%", ratio*percentScale)
}

func delayLine(d report.DelayStats) string {
	if d.AvgDelayDays == nil {
		return "no paired production/test files"
	}

	return fmt.Sprintf("%.2f days average across %s pairs",
		*d.AvgDelayDays, humanize.Comma(int64(d.DelayCount)))
}
