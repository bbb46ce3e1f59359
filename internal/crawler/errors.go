package crawler

import (
	"errors"
	"fmt"
)

// ErrURLResolution is matched by every error caused by a URL that cannot be
// parsed or joined.
var ErrURLResolution = errors.New("cannot resolve URL")

// URLError describes a reference that could not be resolved.
type URLError struct {
	// Base is the URL the reference was resolved against, if any.
	Base string

	// Ref is the offending reference.
	Ref string

	// Err is the parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *URLError) Error() string {
	msg := fmt.Sprintf("%v %q", ErrURLResolution, e.Ref)
	if e.Base != "" {
		msg += fmt.Sprintf(" against %q", e.Base)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error.
func (e *URLError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrURLResolution.
func (e *URLError) Is(target error) bool {
	return target == ErrURLResolution
}
