package sourcemap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/sourcemapscan/internal/fetch"
	"github.com/nao1215/sourcemapscan/internal/model"
)

// sourceServer answers HEAD requests for /src/ok*.js with 200 and records
// every request path.
type sourceServer struct {
	*httptest.Server

	mu    sync.Mutex
	heads []string
	gets  []string
	maps  map[string]string
}

func newSourceServer(t *testing.T, maps map[string]string) *sourceServer {
	t.Helper()

	s := &sourceServer{maps: maps}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if r.Method == http.MethodHead {
			s.heads = append(s.heads, r.URL.Path)
		} else {
			s.gets = append(s.gets, r.URL.Path)
		}
		s.mu.Unlock()

		if body, ok := s.maps[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}
		switch r.URL.Path {
		case "/src/ok.js", "/src/ok2.js", "/lib/ok.js":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *sourceServer) headPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.heads...)
}

func (s *sourceServer) getPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.gets...)
}

func (s *sourceServer) mustURL(t *testing.T, path string) *url.URL {
	t.Helper()

	u, err := url.Parse(s.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// TestValidatorEmbeddedSources tests that embedded sources cause no requests.
func TestValidatorEmbeddedSources(t *testing.T) {
	t.Parallel()

	srv := newSourceServer(t, nil)
	v := NewValidator(fetch.NewFetcher(srv.Client()))

	body := `{"version":3,"sources":["a.js","b.js","c.js"],"sourcesContent":["a","b","c"],"mappings":"AAAA;ACAA;ACAA"}`
	details, err := v.Validate(context.Background(), srv.mustURL(t, "/static/app.js.map"), []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if details.Type != "regular" {
		t.Errorf("Type = %q, want regular", details.Type)
	}
	if details.SourceCount != 3 {
		t.Errorf("SourceCount = %d, want 3", details.SourceCount)
	}
	if details.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", details.TokenCount)
	}
	if details.MissingSources() != 0 {
		t.Errorf("MissingSources() = %d, want 0", details.MissingSources())
	}
	for _, s := range details.Sources {
		if s.Status != model.SourceEmbedded {
			t.Errorf("source %d: status %v, want embedded", s.Index, s.Status)
		}
	}
	if heads := srv.headPaths(); len(heads) != 0 {
		t.Errorf("expected no HEAD requests, got %v", heads)
	}
}

// TestValidatorSourceChecks tests per-source scrape checks.
func TestValidatorSourceChecks(t *testing.T) {
	t.Parallel()

	srv := newSourceServer(t, nil)
	v := NewValidator(fetch.NewFetcher(srv.Client()))

	body := `{
		"version": 3,
		"sources": ["../src/ok.js", "/src/missing.js", null, "http://[::1", "webpack:///src/app.js", "inline.js"],
		"sourcesContent": [null, null, null, null, null, "var inline;"],
		"mappings": "AAAA;ACAA;ACAA;ACAA;ACAA;ACAA"
	}`
	details, err := v.Validate(context.Background(), srv.mustURL(t, "/static/app.js.map"), []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := make([]model.SourceStatus, 0, len(details.Sources))
	for _, s := range details.Sources {
		statuses = append(statuses, s.Status)
	}
	want := []model.SourceStatus{
		model.SourceScrapeable,
		model.SourceUnreachable,
		model.SourceInvalidReference,
		model.SourceInvalidReference,
		model.SourceUnreachable,
		model.SourceEmbedded,
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	if details.Sources[0].URL != srv.URL+"/src/ok.js" {
		t.Errorf("source 0 URL = %q", details.Sources[0].URL)
	}
	if details.Sources[1].StatusCode != http.StatusNotFound {
		t.Errorf("source 1 StatusCode = %d, want 404", details.Sources[1].StatusCode)
	}
	if details.Sources[4].StatusCode != 0 {
		t.Errorf("webpack source must not be requested")
	}
	if details.MissingSources() != 4 {
		t.Errorf("MissingSources() = %d, want 4", details.MissingSources())
	}

	if diff := cmp.Diff([]string{"/src/ok.js", "/src/missing.js"}, srv.headPaths()); diff != "" {
		t.Errorf("HEAD requests mismatch (-want +got):\n%s", diff)
	}
}

// TestValidatorSourceRoot tests that sourceRoot is applied before resolving.
func TestValidatorSourceRoot(t *testing.T) {
	t.Parallel()

	srv := newSourceServer(t, nil)
	v := NewValidator(fetch.NewFetcher(srv.Client()))

	body := `{"version":3,"sourceRoot":"/src/","sources":["ok.js","ok2.js"],"mappings":"AAAA;ACAA"}`
	details, err := v.Validate(context.Background(), srv.mustURL(t, "/static/app.js.map"), []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.MissingSources() != 0 {
		t.Errorf("MissingSources() = %d, want 0: %+v", details.MissingSources(), details.Sources)
	}
}

// TestValidatorIndexMap tests index maps with url sections.
func TestValidatorIndexMap(t *testing.T) {
	t.Parallel()

	t.Run("flattened", func(t *testing.T) {
		t.Parallel()

		srv := newSourceServer(t, map[string]string{
			"/maps/lib.map": `{"version":3,"sources":["ok.js"],"mappings":"AAAA"}`,
		})
		v := NewValidator(fetch.NewFetcher(srv.Client()))

		body := `{
			"version": 3,
			"sections": [
				{"offset": {"line": 0, "column": 0}, "map": {"version":3,"sources":["a.js","b.js"],"sourcesContent":["a","b"],"mappings":"AAAA;ACAA"}},
				{"offset": {"line": 2, "column": 0}, "url": "/maps/lib.map"}
			]
		}`
		details, err := v.Validate(context.Background(), srv.mustURL(t, "/static/bundle.js.map"), []byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if details.Type != "index" {
			t.Errorf("Type = %q, want index", details.Type)
		}
		if details.SourceCount != 3 {
			t.Errorf("SourceCount = %d, want 3", details.SourceCount)
		}
		// ok.js came from /maps/lib.map, so it resolves to /maps/ok.js.
		if details.Sources[2].URL != srv.URL+"/maps/ok.js" {
			t.Errorf("source 2 URL = %q", details.Sources[2].URL)
		}
		if diff := cmp.Diff([]string{"/maps/lib.map"}, srv.getPaths()); diff != "" {
			t.Errorf("GET requests mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unreachable section", func(t *testing.T) {
		t.Parallel()

		srv := newSourceServer(t, nil)
		v := NewValidator(fetch.NewFetcher(srv.Client()))

		body := `{"version":3,"sections":[{"offset":{"line":0,"column":0},"url":"/maps/gone.map"}]}`
		details, err := v.Validate(context.Background(), srv.mustURL(t, "/static/bundle.js.map"), []byte(body))
		if !errors.Is(err, ErrIndexUnsupported) {
			t.Fatalf("expected ErrIndexUnsupported, got %v", err)
		}
		if !errors.Is(err, fetch.ErrStatus) {
			t.Errorf("expected the status error to be kept, got %v", err)
		}
		if details == nil || details.Type != "index" || details.Problem == "" || !details.UnsupportedIndex {
			t.Errorf("expected unsupported index details, got %+v", details)
		}
	})
}

// TestValidatorNotSourcemap tests the sniff failure.
func TestValidatorNotSourcemap(t *testing.T) {
	t.Parallel()

	v := NewValidator(fetch.NewFetcher(nil))
	details, err := v.Validate(context.Background(), nil, []byte("<html>404</html>"))
	if !errors.Is(err, ErrNotSourcemap) {
		t.Errorf("expected ErrNotSourcemap, got %v", err)
	}
	if details != nil {
		t.Errorf("expected nil details, got %+v", details)
	}
}

// TestValidatorDecodeProblem tests that undecodable mappings are reported.
func TestValidatorDecodeProblem(t *testing.T) {
	t.Parallel()

	v := NewValidator(fetch.NewFetcher(nil))
	details, err := v.Validate(context.Background(), nil, []byte(`{"version":3,"sources":["a.js"],"mappings":"!!!"}`))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if details == nil || details.Problem == "" {
		t.Errorf("expected details with a problem, got %+v", details)
	}
}
