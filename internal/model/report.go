package model

import (
	"net/url"
	"strings"
	"time"
)

// Counters tracks how many scripts ended in each outcome.
type Counters struct {
	Ignored          int `json:"ignored"`
	FetchFailed      int `json:"fetch_failed"`
	Unminified       int `json:"unminified"`
	MissingReference int `json:"missing_reference"`
	BrokenReference  int `json:"broken_reference"`
	Valid            int `json:"valid"`
}

// Missing returns the number of scripts that still need a sourcemap uploaded.
func (c Counters) Missing() int {
	return c.MissingReference + c.BrokenReference
}

// Total returns the number of analyzed scripts.
func (c Counters) Total() int {
	return c.Ignored + c.FetchFailed + c.Unminified + c.MissingReference + c.BrokenReference + c.Valid
}

// ScriptResult is the analysis of one distinct script URL.
type ScriptResult struct {
	// ScriptURL is the absolute script URL.
	ScriptURL string `json:"script_url"`

	// FinalURL is the script URL after redirects, when it was fetched.
	FinalURL string `json:"final_url,omitempty"`

	// Size is the script body size in bytes, when it was fetched.
	Size int `json:"size,omitempty"`

	// Reference is the sourcemap reference as declared (possibly relative).
	Reference string `json:"reference,omitempty"`

	// ReferenceOrigin tells where Reference was found (header, pragma, ...).
	ReferenceOrigin string `json:"reference_origin,omitempty"`

	// SourcemapURL is Reference resolved against the script URL.
	SourcemapURL string `json:"sourcemap_url,omitempty"`

	// Truncated is true when the script body was cut at the size limit,
	// so a trailing sourcemap reference may have been missed.
	Truncated bool `json:"truncated,omitempty"`

	// SourcemapSize is the sourcemap body size in bytes, when it was fetched.
	SourcemapSize int `json:"sourcemap_size,omitempty"`

	// Outcome is the single result for this script.
	Outcome Outcome `json:"outcome"`
}

// Report is the accumulated result of analyzing one page.
// Only the pipeline that owns a Report mutates it.
type Report struct {
	// PageURL is the URL the user asked to analyze.
	PageURL string `json:"page_url"`

	// FinalURL is the page URL after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// DateAnalyzed is when the analysis started.
	DateAnalyzed time.Time `json:"date_analyzed"`

	// PageBody is the decoded page HTML. It is dropped after extraction.
	PageBody string `json:"-"`

	// References are the resolved script references awaiting analysis.
	References []ScriptReference `json:"-"`

	// ScriptURLs lists every script reference in document order, duplicates kept.
	ScriptURLs []string `json:"script_urls,omitempty"`

	// ScriptErrors lists script src values that could not be resolved.
	ScriptErrors []string `json:"script_errors,omitempty"`

	// Scripts holds one result per distinct script URL, in document order.
	Scripts []ScriptResult `json:"scripts,omitempty"`

	// Counters summarizes Scripts by outcome.
	Counters Counters `json:"counters"`

	// Candidates lists scripts whose sourcemaps should be uploaded, in order.
	Candidates []UploadCandidate `json:"candidates,omitempty"`

	// CandidateFolders lists local directories containing matching files.
	CandidateFolders []string `json:"candidate_folders,omitempty"`

	// CorrelationRoot is the directory that was searched for local files.
	CorrelationRoot string `json:"correlation_root,omitempty"`

	// PerformedSteps records the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the fatal error that stopped the analysis, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewReport creates an empty report for the given page URL.
func NewReport(pageURL string) *Report {
	return &Report{
		PageURL:      pageURL,
		DateAnalyzed: time.Now(),
		References:   make([]ScriptReference, 0),
		ScriptURLs:   make([]string, 0),
		ScriptErrors: make([]string, 0),
		Scripts:      make([]ScriptResult, 0),
		Candidates:   make([]UploadCandidate, 0),
	}
}

// Redirected reports whether the page was served from a different URL than requested.
// Both URLs are normalized before they are compared by value, so a change in
// scheme or host case alone is not a redirect.
func (r *Report) Redirected() bool {
	if r.FinalURL == "" {
		return false
	}
	return normalizeURL(r.FinalURL) != normalizeURL(r.PageURL)
}

// normalizeURL lower-cases the scheme and host and gives an empty path "/".
// Unparsable input is returned unchanged.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String()
}

// Record adds a script result, updates the counters and appends the upload
// candidate the outcome implies.
func (r *Report) Record(result ScriptResult) {
	r.Scripts = append(r.Scripts, result)

	switch result.Outcome.Kind {
	case OutcomeIgnored:
		r.Counters.Ignored++
	case OutcomeFetchFailed:
		r.Counters.FetchFailed++
	case OutcomeUnminified:
		r.Counters.Unminified++
	case OutcomeMissingReference:
		r.Counters.MissingReference++
		r.Candidates = append(r.Candidates, UploadCandidate{ScriptURL: result.ScriptURL})
	case OutcomeBrokenReference:
		r.Counters.BrokenReference++
		r.Candidates = append(r.Candidates, UploadCandidate{
			ScriptURL:    result.ScriptURL,
			SourcemapURL: result.SourcemapURL,
		})
	case OutcomeValid:
		r.Counters.Valid++
		r.Candidates = append(r.Candidates, UploadCandidate{
			ScriptURL:    result.ScriptURL,
			SourcemapURL: result.SourcemapURL,
			Resolved:     true,
		})
	}
}

// MissingCount returns the number of scripts that still need a sourcemap.
func (r *Report) MissingCount() int {
	return r.Counters.Missing()
}

// SetError records a fatal error.
func (r *Report) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}
