package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/sourcemapscan/internal/config"
	"github.com/nao1215/sourcemapscan/internal/database"
	"github.com/nao1215/sourcemapscan/internal/fetch"
	"github.com/nao1215/sourcemapscan/internal/model"
	"github.com/nao1215/sourcemapscan/internal/pipeline"
	"github.com/nao1215/sourcemapscan/internal/report"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Check the scripts of a page for missing sourcemaps",
		Long: `Analyze fetches a page, follows every script[src] on it and checks each
script for a sourcemap.

For every script it reports one of:
- ignored (served by a known community CDN)
- fetch failed
- unminified (no sourcemap needed)
- minified without a sourcemap reference
- minified with a broken sourcemap reference
- minified with a valid sourcemap, with the sources it can recover

Scripts that need a sourcemap are matched by file name against a local
directory (--dir) to find the build output folders to upload.

The command exits with status 1 only when the page itself cannot be
analyzed. Missing sourcemaps are reported, not treated as failures.

Examples:
  # Analyze a page, matching files under the current directory
  sourcemapscan analyze https://example.com/

  # Match files in a build folder and write a Markdown report
  sourcemapscan analyze --dir ./build --markdown -o report.md https://example.com/

  # Go through a SOCKS5 proxy and keep the result in the history
  sourcemapscan analyze --proxy socks5://127.0.0.1:1080 --save https://staging.example.com/

Configuration file (.sourcemapscan) example:
  sites:
    staging.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Basic dXNlcjpwYXNz"`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringP("proxy", "x", "",
		"Proxy URL (http, https, socks5 or socks5h); default uses HTTP_PROXY settings")

	// Correlation
	cmd.Flags().StringP("dir", "d", config.DefaultCorrelationRoot,
		"Local directory searched for files matching the scripts")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sourcemapscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")

	// History
	cmd.Flags().BoolP("save", "s", false,
		"Save the analysis summary to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runAnalyze(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.ProxyURL, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.CorrelationRoot, err = cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config must exist; otherwise a missing file is fine.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.NoColor, err = cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	cfg.SaveToDB, err = cmd.Flags().GetBool("save")
	if err != nil {
		return nil, err
	}

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Target = args[0]
	}

	return cfg, nil
}

// runAnalyze runs the pipeline for cfg.Target and writes the report to stdout
// or cfg.ReportFile. The returned error is the fatal pipeline error, if any.
func runAnalyze(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	client, err := fetch.NewClient(cfg.Timeout, cfg.ProxyURL)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.SiteConfigs != nil {
		fetchOpts = append(fetchOpts, fetch.WithHeaderSource(cfg.SiteConfigs))
	}
	fetcher := fetch.NewFetcher(client, fetchOpts...)

	p := pipeline.DefaultPipeline(fetcher,
		[]pipeline.Option{pipeline.WithLogger(logger)},
		pipeline.WithPipelineCorrelationRoot(cfg.CorrelationRoot),
		pipeline.WithPipelineLogger(logger),
	)

	logger.Info("starting analysis",
		"page", cfg.Target,
		"dir", cfg.CorrelationRoot,
		"save", cfg.SaveToDB,
	)

	analysis := model.NewReport(cfg.Target)
	execErr := p.Execute(ctx, analysis)

	if err := outputReport(cfg, analysis, stdout); err != nil {
		return errors.Join(execErr, fmt.Errorf("failed to write report: %w", err))
	}

	if cfg.SaveToDB {
		// Use a fresh context so an interrupted run is still recorded.
		if err := saveReport(context.WithoutCancel(ctx), cfg.DBDir, analysis, logger); err != nil {
			logger.Error("failed to save analysis", "page", cfg.Target, "error", err)
		}
	}

	return execErr
}

// outputReport writes the report in the requested format.
func outputReport(cfg *config.Config, analysis *model.Report, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	// Files never get escape codes.
	if (cfg.NoColor || cfg.ReportFile != "") && !color.NoColor {
		color.NoColor = true
	}

	var writer report.Writer
	if cfg.MarkdownReport {
		writer = report.NewMarkdownWriter(output)
	} else {
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(analysis)
	return err
}

// saveReport stores the analysis in the history database.
func saveReport(ctx context.Context, dbDir string, analysis *model.Report, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveReport(ctx, analysis)
	if err != nil {
		return err
	}

	logger.Info("analysis saved", "id", id, "page", analysis.PageURL, "db", db.Path())
	return nil
}
