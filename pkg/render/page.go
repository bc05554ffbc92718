// Package render produces the report's outputs for humans: the HTML chart
// page and the terminal summary tables.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"
)

//go:embed templates/page.html
var pageTemplate string

var (
	pageTmpl     *template.Template
	pageTmplOnce sync.Once
	errPageTmpl  error
)

func getPageTemplate() (*template.Template, error) {
	pageTmplOnce.Do(func() {
		pageTmpl, errPageTmpl = template.New("page").Parse(pageTemplate)
	})

	return pageTmpl, errPageTmpl
}

// Renderable is the interface chart components implement.
type Renderable interface {
	Render(w io.Writer) error
}

// Section is one titled chart on a page.
type Section struct {
	Title string
	Chart Renderable
}

// Page is a self-contained chart page.
type Page struct {
	Title       string
	GeneratedAt time.Time
	Sections    []Section
}

// NewPage creates a page stamped with the current time.
func NewPage(title string) *Page {
	return &Page{Title: title, GeneratedAt: time.Now()}
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

type pageData struct {
	Title     string
	Generated string
	Sections  []sectionData
}

type sectionData struct {
	Title string
	Chart template.HTML
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	tmpl, err := getPageTemplate()
	if err != nil {
		return fmt.Errorf("parse page template: %w", err)
	}

	sections := make([]sectionData, 0, len(p.Sections))

	for _, section := range p.Sections {
		fragment, renderErr := renderChart(section.Chart)
		if renderErr != nil {
			return fmt.Errorf("render section %q: %w", section.Title, renderErr)
		}

		sections = append(sections, sectionData{
			Title: section.Title,
			Chart: template.HTML(fragment), //nolint:gosec // generated chart markup, no user input.
		})
	}

	data := pageData{
		Title:     p.Title,
		Generated: p.GeneratedAt.Format(time.RFC1123),
		Sections:  sections,
	}

	if execErr := tmpl.Execute(w, data); execErr != nil {
		return fmt.Errorf("render page: %w", execErr)
	}

	return nil
}

// renderChart renders a chart and extracts the embeddable fragment from the
// full page go-echarts emits.
func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	if err := chart.Render(&buf); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	return extractChartContent(buf.String()), nil
}

// extractChartContent slices the chart container and its script out of the
// full HTML page go-echarts emits. Fragments pass through untouched.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]

	return strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)
}
