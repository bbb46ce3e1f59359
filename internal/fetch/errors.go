package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Fetch errors.
// Callers use errors.Is with these sentinels; the concrete types carry the
// request details for reporting.
var (
	// ErrTransport is matched by errors for requests that produced no response.
	ErrTransport = errors.New("request failed")

	// ErrStatus is matched by errors for responses with a non-2xx status.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxy is returned when the proxy URL cannot be used.
	ErrInvalidProxy = errors.New("invalid proxy URL: expected http, https, socks5 or socks5h scheme")
)

// Error is a transport failure for a single request.
type Error struct {
	// Method is the HTTP method of the failed request.
	Method string

	// URL is the requested URL.
	URL string

	// Err is the underlying error from the HTTP client.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *Error) Is(target error) bool {
	return target == ErrTransport
}

// StatusError is a response whose final status was not 2xx.
type StatusError struct {
	// Method is the HTTP method of the request.
	Method string

	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code of the final response.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// StatusCode extracts the HTTP status code from err.
// It returns 0 when err carries no status (transport failures, nil).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
