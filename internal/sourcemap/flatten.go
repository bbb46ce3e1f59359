package sourcemap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// errNestedIndex marks a section whose map is itself an index map.
var errNestedIndex = errors.New("nested index map")

// SectionLoader fetches the body of a section referenced by URL.
type SectionLoader interface {
	LoadSection(ctx context.Context, u *url.URL) ([]byte, error)
}

// SectionLoaderFunc adapts a function to SectionLoader.
type SectionLoaderFunc func(ctx context.Context, u *url.URL) ([]byte, error)

// LoadSection calls f(ctx, u).
func (f SectionLoaderFunc) LoadSection(ctx context.Context, u *url.URL) ([]byte, error) {
	return f(ctx, u)
}

// Flatten merges the sections of an index map into one regular view.
// The result carries the concatenated sources and the summed token count of
// every section; it does not rebuild a combined mappings string.
//
// baseURL is the URL of the index map and is used to resolve section URLs.
// Any section that cannot be loaded or decoded, or that is an index map
// itself, fails the whole flatten with an *IndexError.
func (m *IndexMap) Flatten(ctx context.Context, baseURL *url.URL, loader SectionLoader) (*RegularMap, error) {
	flat := &RegularMap{
		File:    m.File,
		Sources: make([]Source, 0),
		Names:   make([]string, 0),
	}

	prevLine, prevColumn := -1, -1
	for i, section := range m.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if section.Line < prevLine || (section.Line == prevLine && section.Column < prevColumn) {
			return nil, &IndexError{Section: i, URL: section.URL, Err: errors.New("sections are not in offset order")}
		}
		prevLine, prevColumn = section.Line, section.Column

		child, base, err := m.loadSection(ctx, section, baseURL, loader)
		if err != nil {
			return nil, &IndexError{Section: i, URL: section.URL, Err: err}
		}

		for _, src := range child.Sources {
			if !src.Null {
				src.Name = joinSourceRoot(child.SourceRoot, src.Name)
			}
			if src.Base == "" {
				src.Base = base
			}
			flat.Sources = append(flat.Sources, src)
		}
		flat.Names = append(flat.Names, child.Names...)
		flat.TokenCount += child.TokenCount
	}
	return flat, nil
}

// loadSection returns the decoded regular map of a section together with the
// base its sources resolve against (empty for inline sections).
func (m *IndexMap) loadSection(ctx context.Context, section Section, baseURL *url.URL, loader SectionLoader) (*RegularMap, string, error) {
	var (
		body []byte
		base string
	)

	switch {
	case section.IsInline():
		body = section.Map
	case section.URL != "":
		if IsDataURL(section.URL) {
			b, err := DecodeDataURL(section.URL)
			if err != nil {
				return nil, "", err
			}
			body = b
			break
		}
		u, err := resolveAgainst(baseURL, section.URL)
		if err != nil {
			return nil, "", err
		}
		if loader == nil {
			return nil, "", fmt.Errorf("no loader for %s", u)
		}
		b, err := loader.LoadSection(ctx, u)
		if err != nil {
			return nil, "", err
		}
		body = b
		base = u.String()
	default:
		return nil, "", errors.New("section has neither map nor url")
	}

	decoded, err := Decode(body)
	if err != nil {
		return nil, "", err
	}
	switch decoded.Kind {
	case KindRegular:
		return decoded.Regular, base, nil
	case KindIndex:
		return nil, "", errNestedIndex
	default:
		return nil, "", fmt.Errorf("unknown map kind %d", decoded.Kind)
	}
}

// resolveAgainst resolves ref relative to base. A nil base only accepts
// absolute references.
func resolveAgainst(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("relative reference %q without base", ref)
	}
	return u, nil
}
