package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// HTML element and attribute names the parser looks at.
const (
	htmlElementScript = "script"
	htmlAttrSrc       = "src"
)

// Parser turns page HTML into a Document and pulls script references out of
// it.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ScriptSource is one script[src] occurrence in document order.
type ScriptSource struct {
	// Src is the raw attribute value.
	Src string

	// URL is the absolute script URL. It is nil when Err is set.
	URL *url.URL

	// Err is a *URLError when Src could not be resolved.
	Err error
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL must be absolute; it is used to resolve relative script URLs.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, &URLError{Ref: baseURL, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &URLError{Ref: baseURL}
	}
	return &Parser{baseURL: u}, nil
}

// BaseURL returns the URL relative references are resolved against.
func (p *Parser) BaseURL() *url.URL {
	u := *p.baseURL
	return &u
}

// Parse parses HTML content into a Document.
func (p *Parser) Parse(content io.Reader) (*Document, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, err
	}
	return NewDocument(root), nil
}

// Scripts returns every script element that carries a src attribute, in
// document order. Duplicates are kept. A src that cannot be resolved is
// returned with Err set and does not affect the other entries.
func (p *Parser) Scripts(doc *Document) []ScriptSource {
	scripts := make([]ScriptSource, 0)
	if doc == nil || doc.Len() == 0 {
		return scripts
	}

	stack := []int{doc.Root()}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := doc.Node(idx)

		if n.Type == ElementNode && n.Tag == htmlElementScript && n.Namespace == "" {
			if src, ok := n.Attr(htmlAttrSrc); ok {
				scripts = append(scripts, p.scriptSource(src))
			}
			// Script content is raw text, never markup.
			continue
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return scripts
}

// scriptSource resolves a single src attribute.
func (p *Parser) scriptSource(src string) ScriptSource {
	u, err := Resolve(p.baseURL, src)
	if err != nil {
		return ScriptSource{Src: src, Err: err}
	}
	return ScriptSource{Src: src, URL: u}
}

// Resolve joins ref onto base the way a browser resolves a relative URL.
// Absolute references replace the base; scheme-relative ones keep the base
// scheme; everything else is resolved relative to the base path.
//
// An empty reference is rejected: a browser does not load a script or
// sourcemap from an empty URL.
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	trimmed := strings.TrimSpace(ref)
	baseStr := ""
	if base != nil {
		baseStr = base.String()
	}
	if trimmed == "" {
		return nil, &URLError{Base: baseStr, Ref: ref}
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &URLError{Base: baseStr, Ref: ref, Err: err}
	}
	if base == nil {
		if !u.IsAbs() {
			return nil, &URLError{Ref: ref}
		}
		return u, nil
	}

	resolved := base.ResolveReference(u)
	if resolved.Scheme == "" {
		return nil, &URLError{Base: baseStr, Ref: ref}
	}
	return resolved, nil
}
