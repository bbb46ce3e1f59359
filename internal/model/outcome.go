package model

import (
	"fmt"
	"net/url"
)

// OutcomeKind identifies which variant an Outcome holds.
type OutcomeKind int

const (
	// OutcomeIgnored marks a script served from a community CDN.
	// No network request is made for such scripts.
	OutcomeIgnored OutcomeKind = iota

	// OutcomeFetchFailed marks a script that could not be downloaded
	// (transport error or non-2xx response).
	OutcomeFetchFailed

	// OutcomeUnminified marks a readable script without a sourcemap reference.
	// Such scripts do not need a sourcemap.
	OutcomeUnminified

	// OutcomeMissingReference marks a minified script that declares no sourcemap.
	OutcomeMissingReference

	// OutcomeBrokenReference marks a script whose declared sourcemap could not
	// be fetched or is not a sourcemap at all.
	OutcomeBrokenReference

	// OutcomeValid marks a script whose sourcemap was fetched and decoded.
	OutcomeValid
)

// String returns a human-readable representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFetchFailed:
		return "fetch-failed"
	case OutcomeUnminified:
		return "unminified"
	case OutcomeMissingReference:
		return "missing-reference"
	case OutcomeBrokenReference:
		return "broken-reference"
	case OutcomeValid:
		return "valid"
	default:
		return "unknown"
	}
}

// NeedsUpload reports whether the outcome leaves the script without a usable sourcemap.
func (k OutcomeKind) NeedsUpload() bool {
	return k == OutcomeMissingReference || k == OutcomeBrokenReference
}

// Outcome is the result of analyzing one script.
// Only the fields that belong to Kind are populated.
type Outcome struct {
	// Kind selects the variant.
	Kind OutcomeKind `json:"kind"`

	// CDNHost is the community CDN host for OutcomeIgnored.
	CDNHost string `json:"cdn_host,omitempty"`

	// Status is the HTTP status for OutcomeFetchFailed and OutcomeBrokenReference.
	// Zero means the request never produced a response.
	Status int `json:"status,omitempty"`

	// Reason describes a failure in words.
	Reason string `json:"reason,omitempty"`

	// Details holds the sourcemap analysis for OutcomeValid.
	Details *SourcemapDetails `json:"details,omitempty"`
}

// Ignored returns the outcome for a script hosted on a community CDN.
func Ignored(host string) Outcome {
	return Outcome{Kind: OutcomeIgnored, CDNHost: host}
}

// FetchFailed returns the outcome for a script that could not be downloaded.
func FetchFailed(status int, reason string) Outcome {
	return Outcome{Kind: OutcomeFetchFailed, Status: status, Reason: reason}
}

// Unminified returns the outcome for a readable script without a reference.
func Unminified() Outcome {
	return Outcome{Kind: OutcomeUnminified}
}

// MissingReference returns the outcome for a minified script without a reference.
func MissingReference() Outcome {
	return Outcome{Kind: OutcomeMissingReference}
}

// BrokenReference returns the outcome for a reference that does not lead to a sourcemap.
func BrokenReference(status int, reason string) Outcome {
	return Outcome{Kind: OutcomeBrokenReference, Status: status, Reason: reason}
}

// Valid returns the outcome for a script with a usable sourcemap.
func Valid(details *SourcemapDetails) Outcome {
	return Outcome{Kind: OutcomeValid, Details: details}
}

// String formats the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeIgnored:
		return fmt.Sprintf("ignored(%s)", o.CDNHost)
	case OutcomeFetchFailed, OutcomeBrokenReference:
		return fmt.Sprintf("%s(%d)", o.Kind, o.Status)
	default:
		return o.Kind.String()
	}
}

// ScriptReference is an absolute script URL found on a page.
type ScriptReference struct {
	// URL is the resolved, absolute script URL.
	URL *url.URL

	// PageURL is the final URL of the page the script tag was found on.
	PageURL string
}

// String returns the script URL.
func (s ScriptReference) String() string {
	if s.URL == nil {
		return ""
	}
	return s.URL.String()
}

// UploadCandidate is a script that should have its sourcemap uploaded.
type UploadCandidate struct {
	// ScriptURL is the absolute URL of the script.
	ScriptURL string `json:"script_url"`

	// SourcemapURL is the resolved sourcemap URL, empty when the script
	// declares no reference.
	SourcemapURL string `json:"sourcemap_url,omitempty"`

	// Resolved is true when the sourcemap was fetched successfully.
	Resolved bool `json:"resolved"`
}
