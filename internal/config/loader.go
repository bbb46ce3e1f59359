package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file looked up in the working and home
// directories.
const DefaultConfigFile = ".sourcemapscan"

// xdgConfigFile is the file name inside the XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads a site configuration file. Unknown keys are
// rejected so a misspelled "headers" does not silently drop a cookie.
// A missing file yields ErrConfigNotFound; whether that matters is up to
// the caller.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cf := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	for host := range cf.Sites {
		if !isBareHost(host) {
			return nil, fmt.Errorf("parse %s: %w: %q", path, ErrInvalidSiteHost, host)
		}
	}
	return cf, nil
}

// isBareHost reports whether host can match url.URL.Hostname().
func isBareHost(host string) bool {
	if host == "" || strings.ContainsAny(host, "/?#@ ") {
		return false
	}
	// IPv6 literals are written without brackets, like Hostname() returns them.
	return strings.Count(host, ":") != 1
}

// FindConfigFile returns the config file to load, or "" when there is none.
// An explicit configPath is used only if it exists. Otherwise the first
// existing file wins among .sourcemapscan in the working directory,
// .sourcemapscan in the home directory and config.yaml in the XDG config
// directory.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return ""
		}
		return configPath
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
