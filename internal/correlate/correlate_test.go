package correlate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/sourcemapscan/internal/model"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()

	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func names(list ...string) NameSet {
	s := NameSet{}
	for _, n := range list {
		s.Add(n)
	}
	return s
}

// TestFindFolders tests local folder discovery.
func TestFindFolders(t *testing.T) {
	t.Parallel()

	t.Run("script and map in one folder", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFiles(t, root, "dist/app.js", "dist/app.js.map", "src/index.ts")

		c := NewCorrelator(WithRoot(root))
		got, err := c.FindFolders(names("app.js"), names("app.js.map"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"dist"}, got); diff != "" {
			t.Errorf("folders mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nested and root folders sorted", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFiles(t, root, "vendor.js", "build/static/js/main.js", "build/static/js/main.js.map", "other/readme.md")

		c := NewCorrelator(WithRoot(root))
		got, err := c.FindFolders(names("main.js", "vendor.js"), names("main.js.map"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{".", "build/static/js"}, got); diff != "" {
			t.Errorf("folders mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFiles(t, root, "a/b.txt")

		c := NewCorrelator(WithRoot(root))
		got, err := c.FindFolders(names("app.js"), NameSet{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no folders, got %v", got)
		}
	})

	t.Run("directories with a matching name are not files", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		if err := os.MkdirAll(filepath.Join(root, "pkg", "app.js"), 0o755); err != nil {
			t.Fatal(err)
		}

		c := NewCorrelator(WithRoot(root))
		got, err := c.FindFolders(names("app.js"), NameSet{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no folders, got %v", got)
		}
	})

	t.Run("unicode normalization", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		// "café.js" written with a combining accent (NFD).
		writeFiles(t, root, "out/cafe\u0301.js")

		c := NewCorrelator(WithRoot(root))
		got, err := c.FindFolders(names("caf\u00e9.js"), NameSet{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"out"}, got); diff != "" {
			t.Errorf("folders mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("broken symlink is skipped", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		writeFiles(t, root, "dist/app.js.map")
		if err := os.MkdirAll(filepath.Join(root, "links"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(filepath.Join(root, "does-not-exist"), filepath.Join(root, "links", "app.js")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}

		c := NewCorrelator(WithRoot(root))
		got, err := c.FindFolders(names("app.js"), names("app.js.map"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"dist"}, got); diff != "" {
			t.Errorf("folders mismatch (-want +got):\n%s", diff)
		}
		if len(c.Skipped()) != 1 || !errors.Is(c.Skipped()[0], ErrWalk) {
			t.Errorf("expected one skipped entry, got %v", c.Skipped())
		}
	})

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()

		c := NewCorrelator(WithRoot(filepath.Join(t.TempDir(), "nope")))
		_, err := c.FindFolders(names("app.js"), NameSet{})
		if !errors.Is(err, ErrWalk) {
			t.Errorf("expected ErrWalk, got %v", err)
		}
	})
}

// TestFileNames tests deriving name sets from upload candidates.
func TestFileNames(t *testing.T) {
	t.Parallel()

	candidates := []model.UploadCandidate{
		{ScriptURL: "https://example.com/static/app.js"},
		{ScriptURL: "https://example.com/static/vendor.js?v=3", SourcemapURL: "https://example.com/maps/vendor.js.map", Resolved: true},
		{ScriptURL: "https://example.com/static/my%20lib.js", SourcemapURL: "https://example.com/static/my%20lib.js.map"},
		{ScriptURL: "https://example.com/", SourcemapURL: "data:application/json;base64,e30="},
	}

	scripts, maps := FileNames(candidates)

	if diff := cmp.Diff(names("app.js", "vendor.js", "my lib.js"), scripts); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(names("vendor.js.map", "my lib.js.map"), maps); diff != "" {
		t.Errorf("maps mismatch (-want +got):\n%s", diff)
	}
}

// TestNewCorrelator tests defaults.
func TestNewCorrelator(t *testing.T) {
	t.Parallel()

	c := NewCorrelator()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if c.Root() != wd {
		t.Errorf("Root() = %q, want %q", c.Root(), wd)
	}

	c = NewCorrelator(WithRoot(""))
	if c.Root() != wd {
		t.Errorf("empty root should keep the default, got %q", c.Root())
	}
}
