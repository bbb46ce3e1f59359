package sourcemap

import (
	"net/http"
	"regexp"
	"strings"
)

// Origin tells where a sourcemap reference was declared.
type Origin string

// Reference origins, in lookup order.
const (
	OriginHeader       Origin = "header"
	OriginLegacyHeader Origin = "legacy-header"
	OriginPragma       Origin = "pragma"
	OriginLegacyPragma Origin = "legacy-pragma"
)

// Response headers carrying a sourcemap reference.
const (
	HeaderSourceMap       = "SourceMap"
	HeaderLegacySourceMap = "X-SourceMap"
)

// Reference is a declared sourcemap location. URL may be relative; it must be
// resolved against the script URL, never the page URL.
type Reference struct {
	URL    string
	Origin Origin
}

// IsDataURL reports whether the sourcemap is inlined in the reference.
func (r Reference) IsDataURL() bool {
	return IsDataURL(r.URL)
}

var (
	// linePragma matches "//# sourceMappingURL=..." and the legacy "//@" form
	// on a line of its own.
	linePragma = regexp.MustCompile(`(?m)^[ \t]*//([#@])[ \t]*sourceMappingURL=([^\s'"]*)[ \t]*\r?$`)

	// blockPragma matches "/*# sourceMappingURL=... */" anywhere on a line.
	blockPragma = regexp.MustCompile(`/\*([#@])[ \t]*sourceMappingURL=([^\s*'"]*)[ \t]*\*/`)
)

// ResolveReference returns the sourcemap reference of a script.
// The SourceMap header wins over X-SourceMap, and both win over pragma
// comments in body. ok is false when the script declares nothing.
func ResolveReference(header http.Header, body string) (Reference, bool) {
	if v := strings.TrimSpace(header.Get(HeaderSourceMap)); v != "" {
		return Reference{URL: v, Origin: OriginHeader}, true
	}
	if v := strings.TrimSpace(header.Get(HeaderLegacySourceMap)); v != "" {
		return Reference{URL: v, Origin: OriginLegacyHeader}, true
	}
	return LocatePragma(body)
}

// LocatePragma returns the last sourceMappingURL pragma comment in body.
func LocatePragma(body string) (Reference, bool) {
	var (
		best  Reference
		found bool
		pos   = -1
	)

	for _, re := range []*regexp.Regexp{linePragma, blockPragma} {
		for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
			value := body[m[4]:m[5]]
			if value == "" || m[0] < pos {
				continue
			}
			origin := OriginPragma
			if body[m[2]:m[3]] == "@" {
				origin = OriginLegacyPragma
			}
			best = Reference{URL: value, Origin: origin}
			pos = m[0]
			found = true
		}
	}
	return best, found
}
