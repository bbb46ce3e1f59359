package crawler

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

// TestParserScripts tests script discovery and URL resolution.
func TestParserScripts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		html string
		want []string
	}{
		{
			name: "absolute src",
			base: "https://example.com/",
			html: `<html><head><script src="https://static.example.net/app.js"></script></head></html>`,
			want: []string{"https://static.example.net/app.js"},
		},
		{
			name: "scheme-relative src keeps page scheme",
			base: "https://example.com/",
			html: `<script src="//cdn.example.org/lib.js"></script>`,
			want: []string{"https://cdn.example.org/lib.js"},
		},
		{
			name: "root-relative src",
			base: "https://example.com/a/b/index.html",
			html: `<script src="/static/main.js"></script>`,
			want: []string{"https://example.com/static/main.js"},
		},
		{
			name: "path-relative src",
			base: "https://example.com/a/b/index.html",
			html: `<script src="js/app.js"></script><script src="../up.js"></script>`,
			want: []string{"https://example.com/a/b/js/app.js", "https://example.com/a/up.js"},
		},
		{
			name: "inline scripts are skipped",
			base: "https://example.com/",
			html: `<script>var x = "<script src='/fake.js'></script>";</script><script src="/real.js"></script>`,
			want: []string{"https://example.com/real.js"},
		},
		{
			name: "duplicates kept in document order",
			base: "https://example.com/",
			html: `<body><div><script src="/b.js"></script></div><script src="/a.js"></script><script src="/b.js"></script></body>`,
			want: []string{"https://example.com/b.js", "https://example.com/a.js", "https://example.com/b.js"},
		},
		{
			name: "commented out script is ignored",
			base: "https://example.com/",
			html: `<!-- <script src="/old.js"></script> --><script src="/new.js"></script>`,
			want: []string{"https://example.com/new.js"},
		},
		{
			name: "no scripts",
			base: "https://example.com/",
			html: `<html><body><p>hello</p></body></html>`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parser, err := NewParser(tt.base)
			if err != nil {
				t.Fatalf("failed to create parser: %v", err)
			}
			doc, err := parser.Parse(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}

			got := make([]string, 0)
			for _, s := range parser.Scripts(doc) {
				if s.Err != nil {
					t.Fatalf("unexpected error for %q: %v", s.Src, s.Err)
				}
				got = append(got, s.URL.String())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("scripts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParserScriptsBadSrc tests that one unresolvable src does not hide the others.
func TestParserScriptsBadSrc(t *testing.T) {
	t.Parallel()

	parser, err := NewParser("https://example.com/")
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	doc, err := parser.Parse(strings.NewReader(
		`<script src="/ok.js"></script><script src="http://[::1"></script><script src="  "></script><script src="/ok2.js"></script>`))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	scripts := parser.Scripts(doc)
	if len(scripts) != 4 {
		t.Fatalf("expected 4 scripts, got %d", len(scripts))
	}
	if scripts[0].Err != nil || scripts[3].Err != nil {
		t.Errorf("valid scripts should resolve: %v, %v", scripts[0].Err, scripts[3].Err)
	}
	for _, i := range []int{1, 2} {
		if !errors.Is(scripts[i].Err, ErrURLResolution) {
			t.Errorf("script %d: expected ErrURLResolution, got %v", i, scripts[i].Err)
		}
		var urlErr *URLError
		if !errors.As(scripts[i].Err, &urlErr) {
			t.Errorf("script %d: expected *URLError", i)
		}
		if scripts[i].URL != nil {
			t.Errorf("script %d: URL should be nil", i)
		}
	}
}

// TestNewParser tests base URL validation.
func TestNewParser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    string
		wantErr bool
	}{
		{name: "https url", base: "https://example.com/"},
		{name: "http url with path", base: "http://example.com/a/b"},
		{name: "relative url", base: "/just/a/path", wantErr: true},
		{name: "empty", base: "", wantErr: true},
		{name: "unparseable", base: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewParser(tt.base)
			if tt.wantErr {
				if !errors.Is(err, ErrURLResolution) {
					t.Errorf("expected ErrURLResolution, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestResolve tests reference joining.
func TestResolve(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/static/js/app.min.js")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		base    *url.URL
		ref     string
		want    string
		wantErr bool
	}{
		{name: "sibling file", base: base, ref: "app.min.js.map", want: "https://example.com/static/js/app.min.js.map"},
		{name: "root relative", base: base, ref: "/maps/app.js.map", want: "https://example.com/maps/app.js.map"},
		{name: "absolute", base: base, ref: "https://maps.example.org/x.map", want: "https://maps.example.org/x.map"},
		{name: "scheme relative", base: base, ref: "//maps.example.org/x.map", want: "https://maps.example.org/x.map"},
		{name: "surrounding whitespace", base: base, ref: "  app.js.map\n", want: "https://example.com/static/js/app.js.map"},
		{name: "nil base absolute ref", base: nil, ref: "https://example.com/a", want: "https://example.com/a"},
		{name: "nil base relative ref", base: nil, ref: "a/b", wantErr: true},
		{name: "empty ref", base: base, ref: "", wantErr: true},
		{name: "bad ref", base: base, ref: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tt.base, tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrURLResolution) {
					t.Errorf("expected ErrURLResolution, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got.String(), tt.want)
			}
		})
	}
}

// TestNewDocument tests the arena layout.
func TestNewDocument(t *testing.T) {
	t.Parallel()

	t.Run("children keep document order", func(t *testing.T) {
		t.Parallel()

		root, err := html.Parse(strings.NewReader(`<html><head></head><body><p id="1"></p><p id="2"></p><p id="3"></p></body></html>`))
		if err != nil {
			t.Fatal(err)
		}
		doc := NewDocument(root)

		body := findFirst(doc, "body")
		if body < 0 {
			t.Fatal("body not found")
		}
		ids := make([]string, 0)
		for _, c := range doc.Node(body).Children {
			if id, ok := doc.Node(c).Attr("id"); ok {
				ids = append(ids, id)
			}
		}
		if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
			t.Errorf("children mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nil root yields empty document", func(t *testing.T) {
		t.Parallel()

		doc := NewDocument(nil)
		if doc.Len() != 1 {
			t.Errorf("expected 1 node, got %d", doc.Len())
		}
		if doc.Node(doc.Root()).Type != DocumentNode {
			t.Errorf("expected document node at root")
		}
	})

	t.Run("deep nesting", func(t *testing.T) {
		t.Parallel()

		var b strings.Builder
		for range 1000 {
			b.WriteString("<div>")
		}
		b.WriteString(`<script src="/deep.js"></script>`)

		parser, err := NewParser("https://example.com/")
		if err != nil {
			t.Fatal(err)
		}
		doc, err := parser.Parse(strings.NewReader(b.String()))
		if err != nil {
			t.Fatal(err)
		}
		scripts := parser.Scripts(doc)
		if len(scripts) != 1 || scripts[0].URL.Path != "/deep.js" {
			t.Errorf("expected deep script, got %+v", scripts)
		}
	})
}

func findFirst(doc *Document, tag string) int {
	for i := range doc.Len() {
		if doc.Node(i).Tag == tag {
			return i
		}
	}
	return -1
}
