package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/sourcemapscan/internal/cdn"
	"github.com/nao1215/sourcemapscan/internal/correlate"
	"github.com/nao1215/sourcemapscan/internal/crawler"
	"github.com/nao1215/sourcemapscan/internal/fetch"
	"github.com/nao1215/sourcemapscan/internal/minify"
	"github.com/nao1215/sourcemapscan/internal/model"
	"github.com/nao1215/sourcemapscan/internal/sourcemap"
)

// Fetcher issues GET and HEAD requests. *fetch.Fetcher implements it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
	Head(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// ErrPageFetch is returned when the page itself cannot be downloaded.
var ErrPageFetch = errors.New("cannot fetch page")

// FetchPageStep downloads the page to analyze. Its failures are fatal.
type FetchPageStep struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewFetchPageStep creates a new page fetching step.
func NewFetchPageStep(fetcher Fetcher, logger *slog.Logger) *FetchPageStep {
	return &FetchPageStep{fetcher: fetcher, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *FetchPageStep) Name() string {
	return "fetch_page"
}

// Do executes the page fetch step.
func (s *FetchPageStep) Do(ctx context.Context, report *model.Report) error {
	u, err := url.Parse(report.PageURL)
	if err != nil {
		return &crawler.URLError{Ref: report.PageURL, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &crawler.URLError{Ref: report.PageURL, Err: errors.New("an absolute http or https URL is required")}
	}

	resp, err := s.fetcher.Get(ctx, u.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPageFetch, err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPageFetch, err)
	}

	body, err := resp.Text()
	if err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrPageFetch, err)
	}

	report.FinalURL = resp.URL
	report.PageBody = body
	if report.Redirected() {
		s.logger.Info("page redirected", "from", report.PageURL, "to", report.FinalURL)
	}
	if resp.Truncated {
		s.logger.Warn("page body truncated", "url", resp.URL, "bytes", len(resp.Body))
	}
	return nil
}

// ExtractScriptsStep finds every script[src] of the fetched page.
type ExtractScriptsStep struct {
	logger *slog.Logger
}

// NewExtractScriptsStep creates a new script extraction step.
func NewExtractScriptsStep(logger *slog.Logger) *ExtractScriptsStep {
	return &ExtractScriptsStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ExtractScriptsStep) Name() string {
	return "extract_scripts"
}

// Do executes the extraction step. A src that cannot be resolved is recorded
// and skipped; an unparsable page is fatal.
func (s *ExtractScriptsStep) Do(_ context.Context, report *model.Report) error {
	base := report.FinalURL
	if base == "" {
		base = report.PageURL
	}

	parser, err := crawler.NewParser(base)
	if err != nil {
		return err
	}
	pageURL := parser.BaseURL().String()
	doc, err := parser.Parse(strings.NewReader(report.PageBody))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	report.PageBody = ""

	for _, script := range parser.Scripts(doc) {
		if script.Err != nil {
			s.logger.Warn("skipping script", "src", script.Src, "error", script.Err)
			report.ScriptErrors = append(report.ScriptErrors, script.Err.Error())
			continue
		}
		report.References = append(report.References, model.ScriptReference{URL: script.URL, PageURL: pageURL})
		report.ScriptURLs = append(report.ScriptURLs, script.URL.String())
	}

	s.logger.Debug("scripts extracted", "count", len(report.References), "errors", len(report.ScriptErrors))
	return nil
}

// AnalyzeScriptsStep analyzes each distinct script URL once, in document
// order. Every distinct URL yields exactly one result; failures are
// recorded, never returned.
type AnalyzeScriptsStep struct {
	fetcher   Fetcher
	validator *sourcemap.Validator
	logger    *slog.Logger
}

// NewAnalyzeScriptsStep creates a new script analysis step.
func NewAnalyzeScriptsStep(fetcher Fetcher, logger *slog.Logger) *AnalyzeScriptsStep {
	logger = orDefault(logger)
	return &AnalyzeScriptsStep{
		fetcher:   fetcher,
		validator: sourcemap.NewValidator(fetcher, sourcemap.WithLogger(logger)),
		logger:    logger,
	}
}

// Name returns the step name.
func (s *AnalyzeScriptsStep) Name() string {
	return "analyze_scripts"
}

// Do executes the analysis step.
func (s *AnalyzeScriptsStep) Do(ctx context.Context, report *model.Report) error {
	seen := make(map[string]struct{}, len(report.References))
	for _, ref := range report.References {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := ref.String()
		if _, dup := seen[key]; dup {
			s.logger.Debug("script already analyzed", "script", key)
			continue
		}
		seen[key] = struct{}{}

		result := s.analyzeScript(ctx, ref)
		report.Record(result)

		s.logger.Info("script analyzed",
			"script", result.ScriptURL,
			"outcome", result.Outcome.String(),
		)
	}
	return nil
}

// analyzeScript runs the whole fetch, resolve and validate sequence for one
// script.
func (s *AnalyzeScriptsStep) analyzeScript(ctx context.Context, ref model.ScriptReference) model.ScriptResult {
	result := model.ScriptResult{ScriptURL: ref.String()}

	if cdn.IsCommunityCDN(ref.URL) {
		result.Outcome = model.Ignored(ref.URL.Hostname())
		return result
	}

	resp, err := s.fetcher.Get(ctx, result.ScriptURL)
	if err != nil {
		result.Outcome = model.FetchFailed(fetch.StatusCode(err), err.Error())
		return result
	}
	result.FinalURL = resp.URL
	if resp.Redirected() {
		s.logger.Debug("script redirected", "script", result.ScriptURL, "to", resp.URL)
	}
	if resp.Failed() {
		result.Outcome = model.FetchFailed(resp.StatusCode, resp.Err().Error())
		return result
	}
	result.Size = len(resp.Body)
	if resp.Truncated {
		result.Truncated = true
		s.logger.Warn("script body truncated, a trailing sourcemap reference may be missed",
			"script", result.ScriptURL, "bytes", len(resp.Body))
	}

	body, err := resp.ScriptText()
	if err != nil {
		body = string(resp.Body)
	}

	reference, ok := sourcemap.ResolveReference(resp.Header, body)
	if !ok {
		if minify.IsLikelyMinified(body) {
			result.Outcome = model.MissingReference()
		} else {
			result.Outcome = model.Unminified()
		}
		return result
	}

	result.ReferenceOrigin = string(reference.Origin)
	result.Reference = reference.URL
	if reference.IsDataURL() {
		result.Reference = abbreviate(reference.URL)
		s.analyzeInlineSourcemap(ctx, ref.URL, reference.URL, &result)
		return result
	}

	s.analyzeSourcemap(ctx, ref.URL, reference.URL, &result)
	return result
}

// analyzeSourcemap fetches and validates a sourcemap declared by URL.
// The reference is resolved against the script URL, not the page URL.
func (s *AnalyzeScriptsStep) analyzeSourcemap(ctx context.Context, scriptURL *url.URL, reference string, result *model.ScriptResult) {
	mapURL, err := crawler.Resolve(scriptURL, reference)
	if err != nil {
		result.Outcome = model.BrokenReference(0, err.Error())
		return
	}
	result.SourcemapURL = mapURL.String()

	resp, err := s.fetcher.Get(ctx, result.SourcemapURL)
	if err != nil {
		result.Outcome = model.BrokenReference(fetch.StatusCode(err), err.Error())
		return
	}
	if resp.Failed() {
		result.Outcome = model.BrokenReference(resp.StatusCode, resp.Err().Error())
		return
	}
	result.SourcemapSize = len(resp.Body)

	s.validate(ctx, mapURL, resp.Body, result)
}

// analyzeInlineSourcemap validates a sourcemap embedded as a data: URL.
// Its sources are resolved against the script URL.
func (s *AnalyzeScriptsStep) analyzeInlineSourcemap(ctx context.Context, scriptURL *url.URL, reference string, result *model.ScriptResult) {
	body, err := sourcemap.DecodeDataURL(reference)
	if err != nil {
		result.Outcome = model.BrokenReference(0, err.Error())
		return
	}
	result.SourcemapSize = len(body)

	s.validate(ctx, scriptURL, body, result)
}

// validate records the outcome of sourcemap validation. A body that is not a
// sourcemap counts as a broken reference; a sourcemap that could only be
// partly analyzed is still valid, with the problem noted in its details.
func (s *AnalyzeScriptsStep) validate(ctx context.Context, mapURL *url.URL, body []byte, result *model.ScriptResult) {
	details, err := s.validator.Validate(ctx, mapURL, body)
	if errors.Is(err, sourcemap.ErrNotSourcemap) {
		result.Outcome = model.BrokenReference(0, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("sourcemap only partly analyzed", "sourcemap", mapURL.String(), "error", err)
	}
	result.Outcome = model.Valid(details)
}

// CorrelateStep looks for local folders holding the scripts and sourcemaps
// that should be uploaded.
type CorrelateStep struct {
	correlator *correlate.Correlator
	logger     *slog.Logger
}

// NewCorrelateStep creates a new correlation step.
func NewCorrelateStep(correlator *correlate.Correlator, logger *slog.Logger) *CorrelateStep {
	return &CorrelateStep{correlator: correlator, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *CorrelateStep) Name() string {
	return "correlate"
}

// Do executes the correlation step. It does nothing when there is nothing
// to upload. Walk errors are logged and leave the folder list empty.
func (s *CorrelateStep) Do(_ context.Context, report *model.Report) error {
	if len(report.Candidates) == 0 {
		return nil
	}

	report.CorrelationRoot = s.correlator.Root()
	scripts, maps := correlate.FileNames(report.Candidates)
	folders, err := s.correlator.FindFolders(scripts, maps)
	if err != nil {
		s.logger.Warn("cannot search local files", "root", report.CorrelationRoot, "error", err)
		return nil
	}
	for _, skipped := range s.correlator.Skipped() {
		s.logger.Debug("skipped local entry", "error", skipped)
	}
	report.CandidateFolders = folders
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// CorrelationRoot is the directory searched for local files.
	// Empty means the working directory.
	CorrelationRoot string

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineCorrelationRoot sets the directory searched for local files.
func WithPipelineCorrelationRoot(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CorrelationRoot = dir
	}
}

// WithPipelineLogger sets the logger passed to every step.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates a pipeline with all analysis steps in order.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineCorrelationRoot, etc).
func DefaultPipeline(fetcher Fetcher, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{}
	for _, opt := range configOpts {
		opt(cfg)
	}
	logger := orDefault(cfg.Logger)

	correlator := correlate.NewCorrelator(
		correlate.WithRoot(cfg.CorrelationRoot),
		correlate.WithLogger(logger),
	)

	p.AddSteps(
		NewFetchPageStep(fetcher, logger),
		NewExtractScriptsStep(logger),
		NewAnalyzeScriptsStep(fetcher, logger),
		NewCorrelateStep(correlator, logger),
	)

	return p
}

// abbreviate shortens long data: references for display.
func abbreviate(ref string) string {
	const maxLen = 48
	if len(ref) <= maxLen {
		return ref
	}
	return fmt.Sprintf("%s... (%d bytes)", ref[:maxLen], len(ref))
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
