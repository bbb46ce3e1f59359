package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sourcemapscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	if report.ErrorMessage == "" {
		w.writeSummary(md, report)
		w.writeScripts(md, report)
		w.writeSources(md, report)
		w.writeUploads(md, report)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with analysis information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Sourcemap Analysis")
	md.PlainText("")

	rows := [][]string{
		{"Page", "`" + report.PageURL + "`"},
	}
	if report.Redirected() {
		rows = append(rows, []string{"Redirected To", "`" + report.FinalURL + "`"})
	}
	rows = append(rows,
		[]string{"Analysis Date", report.DateAnalyzed.Format("2006-01-02 15:04:05 MST")},
		[]string{"Scripts Referenced", strconv.Itoa(len(report.ScriptURLs))},
		[]string{"Status", w.getStatusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.Report) string {
	if report.Cancelled {
		return "⚠️ Cancelled"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the outcome counters, a chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")
	md.PlainText("")

	c := report.Counters
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Scripts"},
		Rows: [][]string{
			{"Valid sourcemap", strconv.Itoa(c.Valid)},
			{"Missing reference", strconv.Itoa(c.MissingReference)},
			{"Broken reference", strconv.Itoa(c.BrokenReference)},
			{"Unminified", strconv.Itoa(c.Unminified)},
			{"Community CDN (ignored)", strconv.Itoa(c.Ignored)},
			{"Fetch failed", strconv.Itoa(c.FetchFailed)},
			{"**Total**", "**" + strconv.Itoa(c.Total()) + "**"},
		},
	})
	md.PlainText("")

	if c.Total() > 0 {
		w.writePieChart(md, c)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, c model.Counters) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Script Outcomes"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		n     int
	}{
		{"Valid", c.Valid},
		{"Missing", c.MissingReference},
		{"Broken", c.BrokenReference},
		{"Unminified", c.Unminified},
		{"Ignored", c.Ignored},
		{"Fetch failed", c.FetchFailed},
	}
	for _, s := range slices {
		if s.n > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes the remediation message.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	missing := report.MissingCount()
	switch {
	case missing > 0:
		md.Warningf("Found %d missing sourcemap(s) that need uploading.", missing)
	case len(report.Candidates) > 0:
		md.Note(fmt.Sprintf("No missing sourcemaps found, but there are %d sourcemap(s) you should consider uploading.",
			len(report.Candidates)))
	default:
		md.Tip("No missing sourcemaps found!")
	}
	md.PlainText("")
}

// writeScripts writes one table row per analyzed script.
func (w *MarkdownWriter) writeScripts(md *markdown.Markdown, report *model.Report) {
	md.H2("Scripts")
	md.PlainText("")

	if len(report.Scripts) == 0 {
		md.PlainText("No scripts found on the page.")
		md.PlainText("")
	} else {
		rows := make([][]string, 0, len(report.Scripts))
		for _, r := range report.Scripts {
			rows = append(rows, []string{
				"`" + truncateString(r.ScriptURL, 80) + "`",
				outcomeText(r.Outcome),
				scriptSizeText(r),
				dashIfEmpty(truncateString(sourcemapLabel(r), 80)),
				sourcesText(r.Outcome.Details),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Script", "Outcome", "Size", "Sourcemap", "Sources"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(report.ScriptErrors) > 0 {
		md.PlainText("Script tags that could not be resolved:")
		md.PlainText("")
		md.BulletList(report.ScriptErrors...)
		md.PlainText("")
	}
}

// writeSources writes the per-source problems of each valid sourcemap.
func (w *MarkdownWriter) writeSources(md *markdown.Markdown, report *model.Report) {
	for _, r := range report.Scripts {
		d := r.Outcome.Details
		if r.Outcome.Kind != model.OutcomeValid || d == nil {
			continue
		}
		if d.Problem == "" && d.MissingSources() == 0 && countStatus(d, model.SourceScrapeable) == 0 {
			continue
		}

		md.H3(truncateString(sourcemapLabel(r), 100))
		md.PlainText("")
		if d.Problem != "" {
			md.Cautionf("%s: %s", capitalize(d.ProblemLabel()), d.Problem)
			md.PlainText("")
			continue
		}

		rows := make([][]string, 0)
		for _, s := range d.Sources {
			if s.Status == model.SourceEmbedded {
				continue
			}
			name := s.Name
			if name == "" {
				name = fmt.Sprintf("#%d", s.Index)
			}
			detail := s.Error
			if s.Status == model.SourceScrapeable {
				detail = s.URL
			}
			rows = append(rows, []string{name, s.Status.String(), dashIfEmpty(truncateString(detail, 80))})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Source", "Status", "Detail"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeUploads writes the local folders and the script/sourcemap pairs.
func (w *MarkdownWriter) writeUploads(md *markdown.Markdown, report *model.Report) {
	if len(report.Candidates) == 0 {
		return
	}

	md.H2("Upload Candidates")
	md.PlainText("")

	if report.CorrelationRoot != "" {
		if len(report.CandidateFolders) == 0 {
			md.PlainTextf("No local folders under `%s` contain matching files.", report.CorrelationRoot)
			md.PlainText("")
		} else {
			md.PlainTextf("Local folders under `%s` with matching files:", report.CorrelationRoot)
			md.PlainText("")
			md.BulletList(report.CandidateFolders...)
			md.PlainText("")
		}
	}

	rows := make([][]string, 0, len(report.Candidates))
	for _, c := range report.Candidates {
		state := "missing"
		if c.Resolved {
			state = "available"
		}
		rows = append(rows, []string{
			"`" + truncateString(c.ScriptURL, 80) + "`",
			dashIfEmpty(truncateString(c.SourcemapURL, 80)),
			state,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Script", "Sourcemap", "Sourcemap State"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [sourcemapscan](https://github.com/nao1215/sourcemapscan)*")
}

// outcomeText formats an outcome for a table cell.
func outcomeText(o model.Outcome) string {
	switch o.Kind {
	case model.OutcomeValid:
		return "✅ valid"
	case model.OutcomeMissingReference:
		return "⚠️ missing reference"
	case model.OutcomeBrokenReference:
		if o.Status != 0 {
			return fmt.Sprintf("❌ broken reference (%d)", o.Status)
		}
		return "❌ broken reference"
	case model.OutcomeFetchFailed:
		if o.Status != 0 {
			return fmt.Sprintf("fetch failed (%d)", o.Status)
		}
		return "fetch failed"
	case model.OutcomeIgnored:
		return "ignored (" + o.CDNHost + ")"
	default:
		return o.Kind.String()
	}
}

// sourcesText summarizes the sources of a sourcemap.
func sourcesText(d *model.SourcemapDetails) string {
	if d == nil || d.Type == "" {
		return "-"
	}
	if d.Problem != "" {
		return d.Type + ", not analyzed"
	}
	return fmt.Sprintf("%s, %d sources, %d missing", d.Type, d.SourceCount, d.MissingSources())
}

func countStatus(d *model.SourcemapDetails, status model.SourceStatus) int {
	n := 0
	for _, s := range d.Sources {
		if s.Status == status {
			n++
		}
	}
	return n
}

func sizeText(n int) string {
	if n == 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func scriptSizeText(r model.ScriptResult) string {
	if r.Truncated {
		return sizeText(r.Size) + " (truncated)"
	}
	return sizeText(r.Size)
}
