package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nabetama/webgrab/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the crawl report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          WEBGRAB CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Start URL:   %s\n", report.StartURL))
	sb.WriteString(fmt.Sprintf("Domain:      %s\n", report.BaseDomain))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", report.Duration.Round(time.Millisecond)))

	if report.Completed() {
		sb.WriteString("Status:      Complete\n")
	} else {
		sb.WriteString("Status:      ABORTED (partial results)\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the page count summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Pages visited:  %d\n", report.PagesVisited))
	sb.WriteString(fmt.Sprintf("  Pages failed:   %d\n", report.PagesFailed))
	sb.WriteString(fmt.Sprintf("  URLs seen:      %d\n", report.URLsSeen))
	sb.WriteString("\n")
}

// writeFailures lists every URL that was dropped after its retry budget.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Failures) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILED URLS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Failures) == 0 {
		sb.WriteString("  No failures\n")
	} else {
		for _, f := range report.Failures {
			sb.WriteString(fmt.Sprintf("  * %s (depth %d)\n", f.URL, f.Depth))
			if w.verbose && f.Error != "" {
				sb.WriteString(fmt.Sprintf("    Error: %s\n", f.Error))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by webgrab\n")
	sb.WriteString("https://github.com/nabetama/webgrab\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
