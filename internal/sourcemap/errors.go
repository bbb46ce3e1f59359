package sourcemap

import (
	"errors"
	"fmt"
)

// Sentinel errors for sourcemap handling.
var (
	// ErrNotSourcemap is returned when bytes do not look like a sourcemap.
	ErrNotSourcemap = errors.New("not a valid sourcemap")

	// ErrDecode is returned when a document looks like a sourcemap but
	// cannot be decoded.
	ErrDecode = errors.New("cannot decode sourcemap")

	// ErrIndexUnsupported is returned when an index map cannot be flattened.
	ErrIndexUnsupported = errors.New("unsupported index sourcemap")

	// ErrInvalidSourceReference is returned for a source entry that is null
	// or does not parse as a URL.
	ErrInvalidSourceReference = errors.New("invalid source reference")

	// ErrDataURL is returned for a malformed data: URL.
	ErrDataURL = errors.New("malformed data URL")
)

// IndexError describes why one section of an index map could not be flattened.
type IndexError struct {
	// Section is the zero-based section position.
	Section int

	// URL is the section URL, empty for inline sections.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	where := fmt.Sprintf("section #%d", e.Section)
	if e.URL != "" {
		where += fmt.Sprintf(" (%s)", e.URL)
	}
	return fmt.Sprintf("%v: %s: %v", ErrIndexUnsupported, where, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IndexError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIndexUnsupported.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexUnsupported
}
