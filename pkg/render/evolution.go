package render

import (
	"io"
	"time"

	"github.com/Sumatoshi-tech/testevo/pkg/report"
)

const pageTitle = "Test Quality Report"

// ReportPage builds the evolution chart page for a report. Series without
// data leave no section behind.
func ReportPage(rep *report.Report, generatedAt time.Time) *Page {
	page := &Page{Title: pageTitle, GeneratedAt: generatedAt}

	if len(rep.CommitStats) > 0 {
		page.Add(Section{
			Title: "Commit line changes",
			Chart: NewLineChart(linePeriods(rep.CommitStats), lineSeries(rep.CommitStats), "lines"),
		})
	}

	if len(rep.PRStats) > 0 {
		page.Add(Section{
			Title: "Pull request line changes",
			Chart: NewLineChart(linePeriods(rep.PRStats), lineSeries(rep.PRStats), "lines"),
		})
	}

	if len(rep.FileStats) > 0 {
		labels, prod, test := fileSeries(rep.FileStats)

		page.Add(Section{
			Title: "File counts",
			Chart: NewLineChart(labels, []LineSeries{
				{Name: "Production files", Data: prod, Color: colorCode},
				{Name: "Test files", Data: test, Color: colorTest},
			}, "files"),
		})
	}

	return page
}

// WriteHTML renders the report's chart page stamped with the current time.
func WriteHTML(w io.Writer, rep *report.Report) error {
	return ReportPage(rep, time.Now()).Render(w)
}

func linePeriods(rows []report.LineRow) []string {
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = row.Period
	}

	return labels
}

func lineSeries(rows []report.LineRow) []LineSeries {
	code := make([]float64, len(rows))
	test := make([]float64, len(rows))

	for i, row := range rows {
		code[i] = float64(row.CodeLines)
		test[i] = float64(row.TestLines)
	}

	return []LineSeries{
		{Name: "Code lines", Data: code, Color: colorCode},
		{Name: "Test lines", Data: test, Color: colorTest},
	}
}

func fileSeries(rows []report.FileRow) (labels []string, prod, test []float64) {
	labels = make([]string, len(rows))
	prod = make([]float64, len(rows))
	test = make([]float64, len(rows))

	for i, row := range rows {
		labels[i] = row.Period
		prod[i] = float64(row.ProdFiles)
		test[i] = float64(row.TestFiles)
	}

	return labels, prod, test
}
