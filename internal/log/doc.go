// Package log builds the slog loggers used across sourcemapscan.
//
// SecureHandler wraps any slog.Handler and masks secrets before a record is
// written. A value is masked when:
//   - its key names a credential (cookie, authorization, token, ...)
//   - the value itself looks like one (JWT, bearer or basic credentials,
//     AWS access keys, PEM private key headers)
//
// URL values keep their shape but lose user info and signed query
// parameters. http.Header values are logged header by header under the same
// rules, so the fetcher can log outgoing requests at debug level.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("sending request", "url", u, "headers", req.Header)
package log
