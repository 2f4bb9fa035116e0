package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nabetama/webgrab/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	titleCaser cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}
}

// Write outputs the crawl report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Webgrab Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Domain", "`" + report.BaseDomain + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Status", w.statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell based on the terminal state.
func (w *MarkdownWriter) statusText(report *model.CrawlReport) string {
	state := w.titleCaser.String(report.State)
	if report.Completed() {
		return "✅ " + state
	}
	return "⚠️ " + state + " (partial results)"
}

// writeSummary writes the page count summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages visited", strconv.Itoa(report.PagesVisited)},
			{"Pages failed", strconv.Itoa(report.PagesFailed)},
			{"URLs seen", strconv.Itoa(report.URLsSeen)},
		},
	})
	md.PlainText("")

	if report.PagesVisited > 0 || report.PagesFailed > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of fetch outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fetch Outcomes"),
		piechart.WithShowData(true),
	)

	if report.PagesVisited > 0 {
		chart.LabelAndIntValue("Visited", uint64(report.PagesVisited))
	}
	if report.PagesFailed > 0 {
		chart.LabelAndIntValue("Failed", uint64(report.PagesFailed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case !report.Completed():
		md.Warningf(
			"The crawl was aborted before finishing. %d page(s) were mirrored before the stop.",
			report.PagesVisited,
		)
	case report.PagesFailed > 0:
		md.Importantf(
			"%d URL(s) could not be fetched after retries. See the failures section below.",
			report.PagesFailed,
		)
	default:
		md.Tip("All discovered pages were mirrored without errors.")
	}
	md.PlainText("")
}

// writeFailures writes the dropped URLs section.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Failed URLs")
	md.PlainText("")

	if len(report.Failures) == 0 {
		md.PlainText("No failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{
			"`" + f.URL + "`",
			strconv.Itoa(f.Depth),
			truncateString(f.Error, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [webgrab](https://github.com/nabetama/webgrab)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
