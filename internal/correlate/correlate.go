// Package correlate finds local folders that hold the scripts and sourcemaps
// seen on a page, so the user knows which build output to upload.
//
// The walk is read-only. Entries that cannot be read are skipped one by one.
package correlate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/sourcemapscan/internal/model"
)

// ErrWalk is matched by errors for directory entries that could not be read.
var ErrWalk = errors.New("cannot read directory entry")

// WalkError describes a skipped entry.
type WalkError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WalkError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrWalk, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *WalkError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrWalk.
func (e *WalkError) Is(target error) bool {
	return target == ErrWalk
}

// NameSet is a set of file names.
type NameSet map[string]struct{}

// Add inserts name in NFC form. Empty names are ignored.
func (s NameSet) Add(name string) {
	if name == "" {
		return
	}
	s[norm.NFC.String(name)] = struct{}{}
}

// Contains reports whether name, in NFC form, is in the set.
func (s NameSet) Contains(name string) bool {
	_, ok := s[norm.NFC.String(name)]
	return ok
}

// FileNames returns the final path segments of the candidates' script URLs
// and of their sourcemap URLs.
func FileNames(candidates []model.UploadCandidate) (scripts, maps NameSet) {
	scripts, maps = NameSet{}, NameSet{}
	for _, c := range candidates {
		scripts.Add(fileName(c.ScriptURL))
		if c.SourcemapURL != "" {
			maps.Add(fileName(c.SourcemapURL))
		}
	}
	return scripts, maps
}

// fileName returns the unescaped last path segment of rawURL.
func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "data" {
		return ""
	}
	p := u.Path
	if p == "" || p[len(p)-1] == '/' {
		return ""
	}
	return path.Base(p)
}

// Correlator walks a directory tree looking for known file names.
type Correlator struct {
	root    string
	logger  *slog.Logger
	skipped []error
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithRoot sets the directory to search. The default is the working directory.
func WithRoot(root string) Option {
	return func(c *Correlator) {
		if root != "" {
			c.root = root
		}
	}
}

// WithLogger sets the logger used for skipped entries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Correlator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCorrelator creates a Correlator.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		root:   ".",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the absolute search root, or the configured root when it
// cannot be made absolute.
func (c *Correlator) Root() string {
	if abs, err := filepath.Abs(c.root); err == nil {
		return abs
	}
	return c.root
}

// Skipped returns the entries skipped during the last FindFolders call.
func (c *Correlator) Skipped() []error {
	return c.skipped
}

// FindFolders returns, sorted and without duplicates, the directories
// (relative to the root, "." for the root itself) that contain a file whose
// name is in scripts or maps. Only an unreadable root is an error.
func (c *Correlator) FindFolders(scripts, maps NameSet) ([]string, error) {
	c.skipped = nil
	folders := make(map[string]struct{})

	if _, err := os.Stat(c.root); err != nil {
		return nil, &WalkError{Path: c.root, Err: err}
	}

	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == c.root {
				return &WalkError{Path: p, Err: err}
			}
			c.skip(p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if !scripts.Contains(name) && !maps.Contains(name) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if _, statErr := os.Stat(p); statErr != nil {
				c.skip(p, statErr)
				return nil
			}
		}

		rel, relErr := filepath.Rel(c.root, filepath.Dir(p))
		if relErr != nil {
			c.skip(p, relErr)
			return nil
		}
		folders[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(folders))
	for f := range folders {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

// skip records and logs an entry that could not be read.
func (c *Correlator) skip(p string, err error) {
	walkErr := &WalkError{Path: p, Err: err}
	c.skipped = append(c.skipped, walkErr)
	c.logger.Debug("skipping entry", "path", p, "error", err)
}
