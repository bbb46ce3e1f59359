// Package report renders analysis results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: colored, human-readable text for terminal display
//   - MarkdownWriter: Markdown for sharing the result in an issue or wiki
package report
