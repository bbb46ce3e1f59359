package model

// SourceStatus describes what happened when a sourcemap source entry was checked.
type SourceStatus int

const (
	// SourceEmbedded means the sourcemap carries the source text itself.
	// No network request is made for embedded sources.
	SourceEmbedded SourceStatus = iota

	// SourceScrapeable means the source is not embedded but a HEAD request
	// to its URL succeeded.
	SourceScrapeable

	// SourceUnreachable means the source is not embedded and its URL did not
	// answer with a 2xx status.
	SourceUnreachable

	// SourceInvalidReference means the source entry is null or does not parse
	// as a URL. No network request is made.
	SourceInvalidReference
)

// String returns a human-readable representation of the source status.
func (s SourceStatus) String() string {
	switch s {
	case SourceEmbedded:
		return "embedded"
	case SourceScrapeable:
		return "scrapeable"
	case SourceUnreachable:
		return "unreachable"
	case SourceInvalidReference:
		return "invalid reference"
	default:
		return "unknown"
	}
}

// SourceCheck is the per-source result of sourcemap validation.
type SourceCheck struct {
	// Index is the position of the source in the sourcemap's sources array.
	Index int `json:"index"`

	// Name is the source entry as written in the sourcemap.
	Name string `json:"name,omitempty"`

	// URL is the source resolved against the sourcemap URL.
	// Empty for embedded sources and invalid references.
	URL string `json:"url,omitempty"`

	// Status is the check result.
	Status SourceStatus `json:"status"`

	// StatusCode is the HTTP status of the HEAD request, if one was answered.
	StatusCode int `json:"status_code,omitempty"`

	// Error describes why the source could not be checked or reached.
	Error string `json:"error,omitempty"`
}

// SourcemapDetails holds what was learned from a fetched sourcemap.
type SourcemapDetails struct {
	// Type is "regular" or "index".
	Type string `json:"type"`

	// SourceCount is the number of sources after flattening.
	SourceCount int `json:"source_count"`

	// TokenCount is the number of mapping segments after flattening.
	TokenCount int `json:"token_count"`

	// Sources contains one check per source entry, in sourcemap order.
	Sources []SourceCheck `json:"sources,omitempty"`

	// Problem is set when the sourcemap was fetched but could not be fully
	// analyzed (unsupported index map, undecodable mappings).
	Problem string `json:"problem,omitempty"`

	// UnsupportedIndex is true when Problem comes from an index map that
	// could not be flattened.
	UnsupportedIndex bool `json:"unsupported_index,omitempty"`
}

// ProblemLabel names the kind of Problem for reports.
func (d *SourcemapDetails) ProblemLabel() string {
	if d.UnsupportedIndex {
		return "unsupported sourcemap index"
	}
	return "error parsing sourcemap"
}

// MissingSources returns the number of sources that are neither embedded nor scrapeable.
func (d *SourcemapDetails) MissingSources() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Sources {
		if s.Status == SourceUnreachable || s.Status == SourceInvalidReference {
			n++
		}
	}
	return n
}
