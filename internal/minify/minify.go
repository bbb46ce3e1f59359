// Package minify guesses whether a script has been minified.
//
// The guess is a statistical one: minifiers remove whitespace, join lines and
// shorten identifiers, so all three leave measurable traces in the text. The
// heuristic only matters for scripts that declare no sourcemap: a readable
// script without a sourcemap needs nothing uploaded.
package minify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// minAnalyzableSize is the smallest script (in runes, excluding
	// surrounding whitespace) the heuristic will call minified.
	minAnalyzableSize = 64

	// longLineThreshold is the average non-empty line length above which a
	// script is treated as minified regardless of other signals.
	longLineThreshold = 250

	// sparseWhitespaceRatio flags large scripts with almost no whitespace.
	sparseWhitespaceRatio = 0.05
	sparseWhitespaceSize  = 512

	// shortIdentifierRatio flags scripts dominated by one or two letter names.
	shortIdentifierRatio    = 0.6
	shortIdentifierMinCount = 30
	shortIdentifierMaxWS    = 0.12
)

// Stats are the measurements the heuristic is based on.
type Stats struct {
	// Size is the number of runes after trimming surrounding whitespace.
	Size int

	// Lines is the number of non-empty lines.
	Lines int

	// LongestLine is the length of the longest line in runes.
	LongestLine int

	// AvgLineLength is the mean length of non-empty lines in runes.
	AvgLineLength float64

	// WhitespaceRatio is the share of whitespace runes.
	WhitespaceRatio float64

	// Identifiers is the number of identifiers that are not keywords.
	Identifiers int

	// ShortIdentifierRatio is the share of identifiers with at most two runes.
	ShortIdentifierRatio float64
}

// IsLikelyMinified reports whether src looks like minified JavaScript.
func IsLikelyMinified(src string) bool {
	return Analyze(src).IsLikelyMinified()
}

// IsLikelyMinified applies the heuristic to the measurements.
func (s Stats) IsLikelyMinified() bool {
	if s.Size < minAnalyzableSize {
		return false
	}
	if s.AvgLineLength >= longLineThreshold {
		return true
	}
	if s.Size >= sparseWhitespaceSize && s.WhitespaceRatio < sparseWhitespaceRatio {
		return true
	}
	if s.Identifiers >= shortIdentifierMinCount &&
		s.ShortIdentifierRatio >= shortIdentifierRatio &&
		s.WhitespaceRatio < shortIdentifierMaxWS {
		return true
	}
	return false
}

// Analyze measures src.
func Analyze(src string) Stats {
	src = strings.TrimSpace(src)
	stats := Stats{Size: utf8.RuneCountInString(src)}
	if stats.Size == 0 {
		return stats
	}

	var lineTotal int
	for _, line := range strings.Split(src, "\n") {
		n := utf8.RuneCountInString(strings.TrimRight(line, "\r"))
		if n == 0 {
			continue
		}
		stats.Lines++
		lineTotal += n
		if n > stats.LongestLine {
			stats.LongestLine = n
		}
	}
	if stats.Lines > 0 {
		stats.AvgLineLength = float64(lineTotal) / float64(stats.Lines)
	}

	var whitespace int
	for _, r := range src {
		if unicode.IsSpace(r) {
			whitespace++
		}
	}
	stats.WhitespaceRatio = float64(whitespace) / float64(stats.Size)

	var short int
	for _, ident := range identifiers(src) {
		if _, ok := keywords[ident]; ok {
			continue
		}
		stats.Identifiers++
		if utf8.RuneCountInString(ident) <= 2 {
			short++
		}
	}
	if stats.Identifiers > 0 {
		stats.ShortIdentifierRatio = float64(short) / float64(stats.Identifiers)
	}

	return stats
}

// identifiers splits src into JavaScript-like identifier tokens.
// String literals and comments are not skipped; they are noise the ratios tolerate.
func identifiers(src string) []string {
	var (
		out   []string
		start = -1
	)
	for i, r := range src {
		switch {
		case start < 0 && isIdentStart(r):
			start = i
		case start >= 0 && !isIdentPart(r):
			out = append(out, src[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, src[start:])
	}
	return out
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// keywords are excluded from identifier statistics; most are short and
// survive minification unchanged.
var keywords = map[string]struct{}{
	"if": {}, "in": {}, "do": {}, "of": {}, "for": {}, "let": {}, "new": {},
	"try": {}, "var": {}, "case": {}, "else": {}, "this": {}, "void": {},
	"with": {}, "null": {}, "true": {}, "false": {}, "break": {}, "catch": {},
	"class": {}, "const": {}, "throw": {}, "while": {}, "yield": {}, "async": {},
	"await": {}, "delete": {}, "export": {}, "import": {}, "return": {},
	"switch": {}, "typeof": {}, "default": {}, "extends": {}, "finally": {},
	"continue": {}, "debugger": {}, "function": {}, "instanceof": {},
	"undefined": {},
}
