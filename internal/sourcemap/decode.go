package sourcemap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	gosourcemap "github.com/go-sourcemap/sourcemap"
)

// MapKind distinguishes the two sourcemap shapes.
type MapKind int

const (
	// KindRegular is a map with its own sources and mappings.
	KindRegular MapKind = iota

	// KindIndex is a map made of offset-addressed sections.
	KindIndex
)

// String returns the lowercase kind name.
func (k MapKind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Source is one entry of a regular map's sources array.
type Source struct {
	// Name is the entry as written. Empty when Null is true.
	Name string

	// Null is true when the sources array held null at this position.
	Null bool

	// Content is the embedded source text from sourcesContent, if any.
	Content *string

	// Base overrides the URL the source is resolved against. It is set for
	// sources that came from a section loaded from its own URL.
	Base string
}

// HasContent reports whether the source text is embedded.
func (s Source) HasContent() bool {
	return s.Content != nil
}

// RegularMap is a decoded regular sourcemap.
type RegularMap struct {
	File       string
	SourceRoot string
	Sources    []Source
	Names      []string
	Mappings   string

	// TokenCount is the number of mapping segments.
	TokenCount int
}

// SourceCount returns the number of sources.
func (m *RegularMap) SourceCount() int {
	return len(m.Sources)
}

// Section is one part of an index map. Exactly one of URL and Map is set.
type Section struct {
	Line   int
	Column int
	URL    string
	Map    json.RawMessage
}

// IsInline reports whether the section embeds its map.
func (s Section) IsInline() bool {
	return len(s.Map) > 0 && !bytes.Equal(bytes.TrimSpace(s.Map), []byte("null"))
}

// IndexMap is a decoded index sourcemap.
type IndexMap struct {
	File     string
	Sections []Section
}

// DecodedMap is either a regular or an index map, selected by Kind.
type DecodedMap struct {
	Kind    MapKind
	Regular *RegularMap
	Index   *IndexMap
}

type rawOffset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type rawSection struct {
	Offset rawOffset       `json:"offset"`
	URL    string          `json:"url"`
	Map    json.RawMessage `json:"map"`
}

type rawMap struct {
	Version        int          `json:"version"`
	File           string       `json:"file"`
	SourceRoot     string       `json:"sourceRoot"`
	Sources        []*string    `json:"sources"`
	SourcesContent []*string    `json:"sourcesContent"`
	Names          []string     `json:"names"`
	Mappings       string       `json:"mappings"`
	Sections       []rawSection `json:"sections"`
}

var (
	utf8BOM    = []byte("\xef\xbb\xbf")
	xssiPrefix = []byte(")]}")
)

// stripPrefix removes a UTF-8 BOM and the ")]}'" line some servers prepend
// to JSON to defeat script inclusion.
func stripPrefix(b []byte) []byte {
	b = bytes.TrimPrefix(b, utf8BOM)
	if bytes.HasPrefix(b, xssiPrefix) {
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			return b[i+1:]
		}
		return nil
	}
	return b
}

// IsSourcemap reports whether b looks like a sourcemap: a JSON object with a
// version key and at least one of sources, mappings or sections.
func IsSourcemap(b []byte) bool {
	b = bytes.TrimSpace(stripPrefix(b))
	if len(b) == 0 || b[0] != '{' {
		return false
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return false
	}
	if _, ok := keys["version"]; !ok {
		return false
	}
	for _, k := range []string{"sources", "mappings", "sections"} {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}

// Decode parses sourcemap bytes. Regular maps have their mappings decoded
// once to make sure they are usable.
func Decode(b []byte) (*DecodedMap, error) {
	if !IsSourcemap(b) {
		return nil, ErrNotSourcemap
	}
	b = stripPrefix(b)

	var raw rawMap
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if raw.Version != 3 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrDecode, raw.Version)
	}

	if raw.Sections != nil {
		return &DecodedMap{Kind: KindIndex, Index: newIndexMap(&raw)}, nil
	}

	// Empty mappings are valid, but the decoder rejects them.
	if raw.Mappings != "" {
		if _, err := gosourcemap.Parse("", b); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
	return &DecodedMap{Kind: KindRegular, Regular: newRegularMap(&raw)}, nil
}

func newIndexMap(raw *rawMap) *IndexMap {
	m := &IndexMap{
		File:     raw.File,
		Sections: make([]Section, 0, len(raw.Sections)),
	}
	for _, s := range raw.Sections {
		m.Sections = append(m.Sections, Section{
			Line:   s.Offset.Line,
			Column: s.Offset.Column,
			URL:    s.URL,
			Map:    s.Map,
		})
	}
	return m
}

func newRegularMap(raw *rawMap) *RegularMap {
	m := &RegularMap{
		File:       raw.File,
		SourceRoot: raw.SourceRoot,
		Sources:    make([]Source, 0, len(raw.Sources)),
		Names:      raw.Names,
		Mappings:   raw.Mappings,
		TokenCount: countTokens(raw.Mappings),
	}
	for i, name := range raw.Sources {
		src := Source{Null: name == nil}
		if name != nil {
			src.Name = *name
		}
		if i < len(raw.SourcesContent) {
			src.Content = raw.SourcesContent[i]
		}
		m.Sources = append(m.Sources, src)
	}
	return m
}

// countTokens counts mapping segments. Lines are separated by ';' and
// segments by ','.
func countTokens(mappings string) int {
	n := 0
	for line := range strings.SplitSeq(mappings, ";") {
		for seg := range strings.SplitSeq(line, ",") {
			if seg != "" {
				n++
			}
		}
	}
	return n
}
