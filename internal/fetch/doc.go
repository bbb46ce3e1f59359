// Package fetch performs the HTTP requests sourcemapscan needs.
//
// A Fetcher issues one GET or HEAD per call, follows redirects transparently
// and reports the final URL, status, headers and body. It never retries:
// every request is attempted exactly once and a failure is returned to the
// caller, which decides whether the failure is fatal.
//
// Two kinds of failure are distinguished:
//   - transport failures (DNS, TLS, timeouts) are returned as *Error and match ErrTransport
//   - non-2xx responses are returned as a normal *Response; Response.Err
//     converts them into *StatusError, which matches ErrStatus
//
// # Usage
//
//	client, err := fetch.NewClient(30*time.Second, "")
//	f := fetch.NewFetcher(client, fetch.WithUserAgent("sourcemapscan"))
//	resp, err := f.Get(ctx, "https://example.com/")
package fetch
