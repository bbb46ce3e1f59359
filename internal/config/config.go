package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sourcemapscan/internal/fetch"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each request, including redirects and the body
	// download. Large bundles and sourcemaps on slow staging servers need
	// more than a few seconds.
	DefaultTimeout = 30 * time.Second

	// DefaultCorrelationRoot is the directory searched for local copies of
	// scripts and sourcemaps.
	DefaultCorrelationRoot = "."

	// AppName is the application name used for XDG directory paths.
	AppName = "sourcemapscan"

	// DefaultUserAgent identifies sourcemapscan in HTTP requests.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize
)

// Config holds all configuration options for a single analysis run.
// This struct is populated from CLI flags and passed through the
// application rather than kept in global state.
type Config struct {
	// Target is the page URL to analyze. It must be an absolute http(s) URL.
	Target string

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyURL routes requests through an HTTP or SOCKS5 proxy.
	// Empty means the environment's proxy settings are used.
	ProxyURL string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// CorrelationRoot is the local directory searched for folders that
	// contain files named like the scripts and sourcemaps found.
	CorrelationRoot string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the default locations are searched.
	ConfigFilePath string

	// SiteConfigs holds the per-host settings loaded from the config file.
	SiteConfigs *File

	// MarkdownReport switches the report to GitHub Flavored Markdown.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// NoColor disables colored text output.
	NoColor bool

	// SaveToDB records the run summary in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		CorrelationRoot: DefaultCorrelationRoot,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for sourcemapscan.
// On Linux: ~/.local/share/sourcemapscan
// On macOS: ~/Library/Application Support/sourcemapscan
// On Windows: %LOCALAPPDATA%\sourcemapscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sourcemapscan.
// On Linux: ~/.config/sourcemapscan
// On macOS: ~/Library/Application Support/sourcemapscan
// On Windows: %APPDATA%\sourcemapscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}

	u, err := url.Parse(c.Target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &TargetError{Target: c.Target, Err: err}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.CorrelationRoot == "" {
		return ErrNoCorrelationRoot
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}
