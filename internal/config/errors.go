package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a readable message.
var (
	// ErrNoTarget is returned when no page URL is given.
	ErrNoTarget = errors.New("no target specified: provide the URL of a page to analyze")

	// ErrInvalidTarget is returned when the page URL is not an absolute
	// http or https URL.
	ErrInvalidTarget = errors.New("invalid target: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoCorrelationRoot is returned when --dir is set to an empty string.
	ErrNoCorrelationRoot = errors.New("no local directory specified for matching files")

	// ErrNoDBDir is returned when saving is requested without a database directory.
	ErrNoDBDir = errors.New("no database directory specified")

	// ErrInvalidSiteHost is returned when a sites entry in the config file
	// is not a bare host name.
	ErrInvalidSiteHost = errors.New("invalid site host: use a host name without scheme, port or path")
)

// TargetError describes a page URL that cannot be analyzed.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", ErrInvalidTarget, e.Target, e.Err)
	}
	return fmt.Sprintf("%s %q", ErrInvalidTarget, e.Target)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidTarget.
func (e *TargetError) Is(target error) bool {
	return target == ErrInvalidTarget
}
