package sourcemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/sourcemapscan/internal/fetch"
	"github.com/nao1215/sourcemapscan/internal/model"
)

// Client is the subset of fetch.Fetcher the validator needs.
type Client interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
	Head(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Validator decodes sourcemaps and checks that their sources are available.
// Requests are issued one at a time.
type Validator struct {
	client Client
	logger *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator creates a Validator that issues requests through client.
func NewValidator(client Client, opts ...ValidatorOption) *Validator {
	v := &Validator{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate decodes body and checks every source of the map found at mapURL.
//
// The returned error is ErrNotSourcemap when body is not a sourcemap; in
// that case details is nil. For ErrDecode and ErrIndexUnsupported the
// details are still returned, with Problem describing what went wrong.
// Problems with individual sources never produce an error; they are
// recorded in details.Sources.
func (v *Validator) Validate(ctx context.Context, mapURL *url.URL, body []byte) (*model.SourcemapDetails, error) {
	decoded, err := Decode(body)
	if err != nil {
		if errors.Is(err, ErrNotSourcemap) {
			return nil, err
		}
		return &model.SourcemapDetails{Problem: err.Error()}, err
	}

	details := &model.SourcemapDetails{Type: decoded.Kind.String()}

	regular, err := v.regularView(ctx, mapURL, decoded)
	if err != nil {
		details.Problem = err.Error()
		details.UnsupportedIndex = errors.Is(err, ErrIndexUnsupported)
		return details, err
	}

	details.SourceCount = regular.SourceCount()
	details.TokenCount = regular.TokenCount
	details.Sources = v.checkSources(ctx, mapURL, regular)
	return details, nil
}

// regularView returns the map to analyze, flattening index maps.
func (v *Validator) regularView(ctx context.Context, mapURL *url.URL, decoded *DecodedMap) (*RegularMap, error) {
	switch decoded.Kind {
	case KindRegular:
		return decoded.Regular, nil
	case KindIndex:
		return decoded.Index.Flatten(ctx, mapURL, SectionLoaderFunc(v.loadSection))
	default:
		return nil, fmt.Errorf("%w: unknown map kind %d", ErrDecode, decoded.Kind)
	}
}

// loadSection fetches a section map referenced by URL.
func (v *Validator) loadSection(ctx context.Context, u *url.URL) ([]byte, error) {
	resp, err := v.client.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// checkSources inspects each source in order. Embedded sources and invalid
// references never cause a request.
func (v *Validator) checkSources(ctx context.Context, mapURL *url.URL, m *RegularMap) []model.SourceCheck {
	checks := make([]model.SourceCheck, 0, len(m.Sources))
	for i, src := range m.Sources {
		check := model.SourceCheck{Index: i, Name: src.Name}

		switch {
		case src.HasContent():
			check.Status = model.SourceEmbedded
		case src.Null:
			check.Status = model.SourceInvalidReference
			check.Error = fmt.Sprintf("%v #%d", ErrInvalidSourceReference, i)
		default:
			v.scrape(ctx, mapURL, m.SourceRoot, src, &check)
		}

		checks = append(checks, check)
	}
	return checks
}

// scrape resolves a non-embedded source and issues a HEAD request for it.
func (v *Validator) scrape(ctx context.Context, mapURL *url.URL, sourceRoot string, src Source, check *model.SourceCheck) {
	base := mapURL
	if src.Base != "" {
		if u, err := url.Parse(src.Base); err == nil {
			base = u
		}
	}

	u, err := resolveAgainst(base, joinSourceRoot(sourceRoot, src.Name))
	if err != nil {
		check.Status = model.SourceInvalidReference
		check.Error = fmt.Sprintf("%v %q: %v", ErrInvalidSourceReference, src.Name, err)
		return
	}
	check.URL = u.String()

	if u.Scheme != "http" && u.Scheme != "https" {
		check.Status = model.SourceUnreachable
		check.Error = fmt.Sprintf("cannot scrape %s: URL", u.Scheme)
		return
	}

	if err := ctx.Err(); err != nil {
		check.Status = model.SourceUnreachable
		check.Error = err.Error()
		return
	}

	resp, err := v.client.Head(ctx, check.URL)
	if err != nil {
		v.logger.Debug("source check failed", "url", check.URL, "error", err)
		check.Status = model.SourceUnreachable
		check.Error = err.Error()
		return
	}

	check.URL = resp.URL
	check.StatusCode = resp.StatusCode
	if resp.Failed() {
		check.Status = model.SourceUnreachable
		check.Error = resp.Err().Error()
		return
	}
	check.Status = model.SourceScrapeable
}

// joinSourceRoot prefixes name with root the way browsers do: a slash is
// inserted when needed and absolute URLs are left alone.
func joinSourceRoot(root, name string) string {
	if root == "" {
		return name
	}
	if u, err := url.Parse(name); err == nil && u.IsAbs() {
		return name
	}
	if strings.HasSuffix(root, "/") {
		return root + strings.TrimPrefix(name, "/")
	}
	if strings.HasPrefix(name, "/") {
		return root + name
	}
	return root + "/" + name
}
