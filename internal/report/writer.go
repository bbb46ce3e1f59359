package report

import (
	"io"

	"github.com/nao1215/sourcemapscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write analysis results in various formats.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sourcemapLabel returns how a script's sourcemap is shown: its URL, or a
// placeholder for sourcemaps inlined as data: URLs.
func sourcemapLabel(r model.ScriptResult) string {
	if r.SourcemapURL != "" {
		return r.SourcemapURL
	}
	if r.Reference != "" {
		return "inline sourcemap"
	}
	return ""
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
