package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/sourcemapscan/internal/config"
)

var minifiedJS = strings.Repeat("var a=function(b,c){return b+c};", 20)

// testSite serves a page with one minified script and records the cookies
// it receives.
type testSite struct {
	*httptest.Server

	mu      sync.Mutex
	cookies []string
}

func newTestSite(t *testing.T, pageStatus int) *testSite {
	t.Helper()

	site := &testSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		site.record(r)
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(pageStatus)
		fmt.Fprint(w, `<html><head><script src="/static/app.js"></script></head><body></body></html>`)
	})
	mux.HandleFunc("/static/app.js", func(w http.ResponseWriter, r *http.Request) {
		site.record(r)
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, minifiedJS)
	})

	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func (s *testSite) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = append(s.cookies, r.Header.Get("Cookie"))
}

func (s *testSite) receivedCookies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cookies...)
}

// writeConfig writes a config file sending cookie to 127.0.0.1.
func writeConfig(t *testing.T, cookie string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".sourcemapscan")
	content := fmt.Sprintf("sites:\n  127.0.0.1:\n    cookie: %q\n", cookie)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// newBuildDir creates a directory with a dist folder holding app.js.
func newBuildDir(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "dist"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "dist", "app.js"), []byte(minifiedJS), 0600); err != nil {
		t.Fatal(err)
	}
	return root
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// TestNewAnalyzeCmd tests the analyze command flags.
func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{name: "timeout", shorthand: "t", def: config.DefaultTimeout.String()},
		{name: "user-agent", shorthand: "u", def: config.DefaultUserAgent},
		{name: "proxy", shorthand: "x", def: ""},
		{name: "dir", shorthand: "d", def: "."},
		{name: "config", shorthand: "c", def: ""},
		{name: "markdown", shorthand: "m", def: "false"},
		{name: "output", shorthand: "o", def: ""},
		{name: "no-color", def: "false"},
		{name: "save", shorthand: "s", def: "false"},
		{name: "db-dir", def: config.XDGDataDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("expected default %q, got %q", tt.def, flag.DefValue)
			}
		})
	}
}

// TestAnalyzeCommand runs the whole analysis against a local site.
func TestAnalyzeCommand(t *testing.T) {
	t.Parallel()

	t.Run("reports missing sourcemap and saves history", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, http.StatusOK)
		dbDir := t.TempDir()
		pageURL := site.URL + "/"

		output, err := execute(t, "analyze",
			"--dir", newBuildDir(t),
			"--config", writeConfig(t, "session=abc"),
			"--no-color",
			"--save",
			"--db-dir", dbDir,
			pageURL,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, output)
		}

		for _, want := range []string{
			"› Finding scripts on " + pageURL,
			"◦ " + site.URL + "/static/app.js",
			"minified without sourcemap reference",
			"› Found 1 missing sourcemap(s) that need uploading",
			"▸ dist",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}

		cookies := site.receivedCookies()
		if len(cookies) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(cookies))
		}
		for _, c := range cookies {
			if c != "session=abc" {
				t.Errorf("expected configured cookie on every request, got %q", c)
			}
		}

		history, err := execute(t, "history", "--db-dir", dbDir, "--no-color", pageURL)
		if err != nil {
			t.Fatalf("unexpected history error: %v", err)
		}
		if !strings.Contains(history, pageURL) || !strings.Contains(history, "1 missing") {
			t.Errorf("expected saved analysis in history\n%s", history)
		}
		if !strings.Contains(history, "[complete]") {
			t.Errorf("expected complete status in history\n%s", history)
		}

		saved, err := execute(t, "history", "--db-dir", dbDir, "--id", "1")
		if err != nil {
			t.Fatalf("unexpected history error: %v", err)
		}
		if !strings.Contains(saved, "› Found 1 missing sourcemap(s) that need uploading") {
			t.Errorf("expected saved report to be printed again\n%s", saved)
		}
	})

	t.Run("writes markdown to a file", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, http.StatusOK)
		reportPath := filepath.Join(t.TempDir(), "reports", "sourcemaps.md")

		output, err := execute(t, "analyze",
			"--dir", newBuildDir(t),
			"--config", writeConfig(t, "a=b"),
			"--markdown",
			"-o", reportPath,
			site.URL+"/",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output != "" {
			t.Errorf("expected nothing on stdout, got %q", output)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("report file was not written: %v", err)
		}
		if !strings.Contains(string(content), "# Sourcemap Analysis") {
			t.Errorf("expected markdown report\n%s", content)
		}
	})

	t.Run("page fetch failure is fatal", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, http.StatusInternalServerError)

		output, err := execute(t, "analyze",
			"--dir", t.TempDir(),
			"--config", writeConfig(t, "a=b"),
			"--no-color",
			site.URL+"/",
		)
		if err == nil {
			t.Fatal("expected error for failed page fetch")
		}
		if !strings.Contains(output, "analysis failed") {
			t.Errorf("expected failure in report\n%s", output)
		}
		if strings.Contains(output, "Scripts referenced") {
			t.Errorf("expected no script analysis after a fatal error\n%s", output)
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "analyze", "--config", writeConfig(t, "a=b"), "example.com")
		if !errors.Is(err, config.ErrInvalidTarget) {
			t.Errorf("expected ErrInvalidTarget, got %v", err)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "nope.yaml")
		_, err := execute(t, "analyze", "--config", missing, "https://example.com/")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("requires exactly one URL", func(t *testing.T) {
		t.Parallel()

		if _, err := execute(t, "analyze"); err == nil {
			t.Error("expected error without a URL")
		}
	})
}

// TestHistoryCommand tests history without any saved analysis.
func TestHistoryCommand(t *testing.T) {
	t.Parallel()

	dbDir := filepath.Join(t.TempDir(), "db")
	output, err := execute(t, "history", "--db-dir", dbDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "No saved analyses") {
		t.Errorf("expected empty history message, got %q", output)
	}
	if _, err := os.Stat(dbDir); !os.IsNotExist(err) {
		t.Error("history must not create the database")
	}
}
