package fetch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"golang.org/x/net/html/charset"
)

// DefaultMaxBodySize limits how much of a response body is read.
// Production bundles and their sourcemaps can be large, so the limit is generous.
const DefaultMaxBodySize = 20 * 1024 * 1024 // 20MB

// DefaultUserAgent identifies sourcemapscan in server logs.
const DefaultUserAgent = "sourcemapscan/1.0 (+https://github.com/nao1215/sourcemapscan)"

// HeaderSource supplies extra request headers for a host, such as cookies
// for a staging site behind authentication.
type HeaderSource interface {
	HeadersFor(host string) http.Header
}

// Response is the result of a single request after redirects.
type Response struct {
	// RequestURL is the URL that was requested.
	RequestURL string

	// URL is the final URL after redirects.
	URL string

	// Method is the HTTP method used.
	Method string

	// StatusCode is the status of the final response.
	StatusCode int

	// Header contains the final response headers.
	Header http.Header

	// Body is the response body for GET requests, capped at the fetcher's
	// maximum body size. It is nil for HEAD requests.
	Body []byte

	// Truncated is true when the body was cut at the size limit.
	Truncated bool
}

// Failed reports whether the final status was not 2xx.
func (r *Response) Failed() bool {
	return r.StatusCode < 200 || r.StatusCode > 299
}

// Err returns a *StatusError when the response failed, nil otherwise.
func (r *Response) Err() error {
	if !r.Failed() {
		return nil
	}
	return &StatusError{Method: r.Method, URL: r.URL, StatusCode: r.StatusCode}
}

// Redirected reports whether the final URL differs from the requested URL.
// URLs are compared by value.
func (r *Response) Redirected() bool {
	return r.URL != r.RequestURL
}

// Text decodes the body to UTF-8 using the Content-Type charset, a BOM or
// content sniffing, in that order.
func (r *Response) Text() (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// ScriptText returns the body as text without guessing its encoding.
// It transcodes only when the Content-Type names a charset or the body
// starts with a byte order mark; otherwise the bytes are taken as UTF-8.
func (r *Response) ScriptText() (string, error) {
	if declaresCharset(r.Header.Get("Content-Type")) || hasBOM(r.Body) {
		return r.Text()
	}
	return string(r.Body), nil
}

func declaresCharset(contentType string) bool {
	if contentType == "" {
		return false
	}
	_, params, err := mime.ParseMediaType(contentType)
	return err == nil && params["charset"] != ""
}

var byteOrderMarks = [][]byte{
	{0xEF, 0xBB, 0xBF}, // UTF-8
	{0xFE, 0xFF},       // UTF-16BE
	{0xFF, 0xFE},       // UTF-16LE
}

func hasBOM(b []byte) bool {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(b, bom) {
			return true
		}
	}
	return false
}

// Fetcher performs GET and HEAD requests.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	headers     HeaderSource
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithHeaderSource adds per-host headers to every request.
func WithHeaderSource(src HeaderSource) Option {
	return func(f *Fetcher) {
		f.headers = src
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher using client.
// A nil client means http.DefaultClient.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Get fetches rawURL and reads its body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	return f.do(ctx, http.MethodGet, rawURL)
}

// Head fetches only the headers of rawURL.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (*Response, error) {
	return f.do(ctx, http.MethodHead, rawURL)
}

// do performs a single request.
func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, &Error{Method: method, URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	if f.headers != nil {
		for key, values := range f.headers.HeadersFor(req.URL.Hostname()) {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}
	f.logger.Debug("sending request", "method", method, "url", req.URL, "headers", req.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("request failed", "method", method, "url", rawURL, "error", err)
		return nil, &Error{Method: method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	result := &Response{
		RequestURL: rawURL,
		URL:        resp.Request.URL.String(),
		Method:     method,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	if method != http.MethodHead {
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
		if err != nil {
			return nil, &Error{Method: method, URL: rawURL, Err: err}
		}
		if int64(len(body)) > f.maxBodySize {
			body = body[:f.maxBodySize]
			result.Truncated = true
		}
		result.Body = body
	}

	f.logger.Debug("request completed",
		"method", method,
		"url", result.URL,
		"status", result.StatusCode,
		"bytes", len(result.Body),
	)

	return result, nil
}
