package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nao1215/sourcemapscan/internal/model"
)

// SimpleWriter outputs a human-readable, colored text report.
//
// Colors follow fatih/color's global switch, so color.NoColor (set by
// --no-color or a non-terminal stdout) turns them off everywhere.
type SimpleWriter struct {
	baseWriter

	// verbose also lists sources that need no attention.
	verbose bool

	cyan    func(a ...any) string
	green   func(a ...any) string
	yellow  func(a ...any) string
	red     func(a ...any) string
	magenta func(a ...any) string
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

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
		cyan:       color.New(color.FgCyan).SprintFunc(),
		green:      color.New(color.FgGreen).SprintFunc(),
		yellow:     color.New(color.FgYellow).SprintFunc(),
		red:        color.New(color.FgRed).SprintFunc(),
		magenta:    color.New(color.FgMagenta).SprintFunc(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Error != nil || report.ErrorMessage != "" {
		w.writeError(&sb, report)
		return io.WriteString(w.output, sb.String())
	}

	w.writeScripts(&sb, report)
	w.writeAnalysis(&sb, report)
	w.writeSummary(&sb, report)
	w.writeUploads(&sb, report)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the page being analyzed and any redirect.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	fmt.Fprintf(sb, "› Finding scripts on %s\n", w.cyan(report.PageURL))
	if report.Redirected() {
		fmt.Fprintf(sb, "› Redirected to %s\n", w.cyan(report.FinalURL))
	}
}

// writeError writes the fatal error that stopped the analysis.
func (w *SimpleWriter) writeError(sb *strings.Builder, report *model.Report) {
	msg := report.ErrorMessage
	if msg == "" {
		msg = report.Error.Error()
	}
	if report.Cancelled {
		fmt.Fprintf(sb, "› %s: %s\n", w.yellow("analysis cancelled"), msg)
		return
	}
	fmt.Fprintf(sb, "› %s: %s\n", w.red("analysis failed"), msg)
}

// writeScripts lists every script reference found on the page.
func (w *SimpleWriter) writeScripts(sb *strings.Builder, report *model.Report) {
	sb.WriteString("› Scripts referenced:\n")
	if len(report.ScriptURLs) == 0 && len(report.ScriptErrors) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, u := range report.ScriptURLs {
		fmt.Fprintf(sb, "  ◦ %s\n", w.cyan(u))
	}
	for _, e := range report.ScriptErrors {
		fmt.Fprintf(sb, "  ! %s\n", w.red(e))
	}
}

// writeAnalysis writes one block per analyzed script.
func (w *SimpleWriter) writeAnalysis(sb *strings.Builder, report *model.Report) {
	if len(report.Scripts) == 0 {
		return
	}
	sb.WriteString("› Analyzing scripts:\n")
	for _, r := range report.Scripts {
		w.writeScript(sb, r)
	}
}

// writeScript writes the analysis of a single script.
func (w *SimpleWriter) writeScript(sb *strings.Builder, r model.ScriptResult) {
	o := r.Outcome
	switch o.Kind {
	case model.OutcomeIgnored:
		fmt.Fprintf(sb, "  Ⅰ %s\n", w.yellow(r.ScriptURL))
		sb.WriteString("    known community CDN provided script; ignoring\n")
		return
	case model.OutcomeFetchFailed:
		fmt.Fprintf(sb, "  ✕ %s [%s]\n", w.red(r.ScriptURL), statusText(o))
		return
	}

	size := humanize.Bytes(uint64(r.Size))
	if r.Truncated {
		size += ", truncated"
	}
	fmt.Fprintf(sb, "  ✓ %s (%s)\n", w.green(r.ScriptURL), size)

	switch o.Kind {
	case model.OutcomeUnminified:
		sb.WriteString("    unminified\n")
	case model.OutcomeMissingReference:
		fmt.Fprintf(sb, "    minified %s sourcemap reference\n", w.red("without"))
	case model.OutcomeBrokenReference:
		w.writeReference(sb, r)
		label := sourcemapLabel(r)
		switch {
		case o.Status != 0:
			fmt.Fprintf(sb, "    ✕ %s [%d]\n", w.red(label), o.Status)
		case r.SourcemapSize > 0:
			fmt.Fprintf(sb, "    ✓ %s (%s)\n", w.green(label), humanize.Bytes(uint64(r.SourcemapSize)))
			fmt.Fprintf(sb, "      %s\n", w.red(o.Reason))
		default:
			fmt.Fprintf(sb, "    ✕ %s\n", w.red(o.Reason))
		}
	case model.OutcomeValid:
		w.writeReference(sb, r)
		fmt.Fprintf(sb, "    ✓ %s (%s)\n", w.green(sourcemapLabel(r)), humanize.Bytes(uint64(r.SourcemapSize)))
		w.writeDetails(sb, o.Details)
	}
}

// writeReference writes the declared sourcemap reference.
func (w *SimpleWriter) writeReference(sb *strings.Builder, r model.ScriptResult) {
	fmt.Fprintf(sb, "    minified %s sourcemap (-> %s) [%s]\n",
		w.green("with"), w.cyan(r.Reference), r.ReferenceOrigin)
}

// writeDetails writes what was learned from a valid sourcemap.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, d *model.SourcemapDetails) {
	if d == nil {
		return
	}
	const prefix = "      "

	if d.Type != "" {
		typ := w.cyan(d.Type)
		if d.Type == "index" {
			typ = w.yellow(d.Type)
		}
		fmt.Fprintf(sb, "%ssourcemap type: %s\n", prefix, typ)
	}
	if d.Problem != "" {
		fmt.Fprintf(sb, "%s%s: %s\n", prefix, w.red(d.ProblemLabel()), d.Problem)
		return
	}

	fmt.Fprintf(sb, "%ssources: %s\n", prefix, w.yellow(d.SourceCount))
	fmt.Fprintf(sb, "%stokens: %s\n", prefix, w.yellow(d.TokenCount))

	for _, s := range d.Sources {
		switch s.Status {
		case model.SourceEmbedded:
			if w.verbose {
				fmt.Fprintf(sb, "%s  embedded: %s\n", prefix, w.cyan(s.Name))
			}
		case model.SourceScrapeable:
			fmt.Fprintf(sb, "%s  %s: no embedded sourcecode for %s\n", prefix, w.yellow("warning"), w.cyan(s.Name))
			fmt.Fprintf(sb, "%s  (but can scrape source at %s)\n", prefix, w.cyan(s.URL))
		case model.SourceUnreachable:
			fmt.Fprintf(sb, "%s  %s: no embedded sourcecode for %s\n", prefix, w.yellow("warning"), w.cyan(s.Name))
			if s.StatusCode != 0 {
				fmt.Fprintf(sb, "%s  (%s: cannot scrape at %s [%d])\n", prefix, w.red("error"), w.cyan(s.URL), s.StatusCode)
			} else {
				fmt.Fprintf(sb, "%s  (%s: %s)\n", prefix, w.red("error"), s.Error)
			}
		case model.SourceInvalidReference:
			fmt.Fprintf(sb, "%s  %s: invalid source reference %s\n", prefix, w.yellow("warning"), w.cyan(fmt.Sprintf("#%d", s.Index)))
		}
	}
}

// writeSummary writes the missing sourcemap count or the success message.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	missing := report.MissingCount()
	if missing > 0 {
		fmt.Fprintf(sb, "› Found %s missing sourcemap(s) that need uploading\n", w.yellow(missing))
		return
	}
	sb.WriteString("› No missing sourcemaps found!\n")
	if n := len(report.Candidates); n > 0 {
		fmt.Fprintf(sb, "  (but there are %s sourcemap(s) you should consider uploading)\n", w.yellow(n))
	}
}

// writeUploads writes the local folders and script/sourcemap pairs to upload.
func (w *SimpleWriter) writeUploads(sb *strings.Builder, report *model.Report) {
	if len(report.Candidates) == 0 {
		return
	}

	if report.CorrelationRoot != "" {
		fmt.Fprintf(sb, "› Local folders with matching files (in %s):\n", report.CorrelationRoot)
		if len(report.CandidateFolders) == 0 {
			sb.WriteString("  (none found)\n")
		}
		for _, f := range report.CandidateFolders {
			fmt.Fprintf(sb, "  ▸ %s\n", w.cyan(f))
		}
	}

	sb.WriteString("› Scripts and sourcemaps:\n")
	for _, c := range report.Candidates {
		fmt.Fprintf(sb, "  ◦ %s\n", w.cyan(c.ScriptURL))
		if c.SourcemapURL != "" {
			fmt.Fprintf(sb, "    -> %s\n", w.magenta(c.SourcemapURL))
		}
	}
}

// statusText formats the HTTP status of a failed outcome.
func statusText(o model.Outcome) string {
	if o.Status != 0 {
		return fmt.Sprintf("%d", o.Status)
	}
	return o.Reason
}
