package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/sourcemapscan/internal/config"
	"github.com/nao1215/sourcemapscan/internal/database"
	"github.com/nao1215/sourcemapscan/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List analyses saved with analyze --save",
		Long: `History lists the analyses saved with "analyze --save", newest first.

Examples:
  # List every saved analysis
  sourcemapscan history

  # List the analyses of one page
  sourcemapscan history https://example.com/

  # List the pages that have saved analyses
  sourcemapscan history --pages

  # Print a saved report again
  sourcemapscan history --id 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("pages", "L", false,
		"List the pages that have saved analyses")
	cmd.Flags().Int64P("id", "i", 0,
		"Print the saved report with this ID")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the saved report as Markdown (with --id)")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	listPages, err := cmd.Flags().GetBool("pages")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}
	if noColor && !color.NoColor {
		color.NoColor = true
	}

	out := cmd.OutOrStdout()

	// Listing history must not create an empty database.
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No saved analyses. Run \"sourcemapscan analyze --save <url>\" to record one.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case id != 0:
		saved, err := db.GetReport(ctx, id)
		if err != nil {
			return err
		}
		var w report.Writer = report.NewSimpleWriter(out)
		if markdownOutput {
			w = report.NewMarkdownWriter(out)
		}
		_, err = w.Write(saved)
		return err

	case listPages:
		pages, err := db.ListPages(ctx)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Fprintln(out, "No saved analyses.")
			return nil
		}
		for _, page := range pages {
			fmt.Fprintln(out, page)
		}
		return nil
	}

	pageURL := ""
	if len(args) > 0 {
		pageURL = args[0]
	}

	history, err := db.ListHistory(ctx, pageURL)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(out, "No saved analyses.")
		return nil
	}

	for _, h := range history {
		writeHistoryEntry(out, h)
	}
	return nil
}

// writeHistoryEntry prints one saved analysis as a single line.
func writeHistoryEntry(out io.Writer, h database.AnalysisMetadata) {
	status := color.GreenString(h.Status)
	switch h.Status {
	case database.StatusFailed:
		status = color.RedString(h.Status)
	case database.StatusCancelled:
		status = color.YellowString(h.Status)
	}

	missing := fmt.Sprintf("%d missing", h.MissingCount)
	if h.MissingCount > 0 {
		missing = color.YellowString(missing)
	}

	fmt.Fprintf(out, "#%d  %s  %s  [%s]  %d scripts, %s, %d valid  (%s)\n",
		h.ID,
		h.Timestamp.Local().Format("2006-01-02 15:04:05"),
		color.CyanString(h.PageURL),
		status,
		h.ScriptCount,
		missing,
		h.Counters.Valid,
		humanize.Time(h.Timestamp),
	)
}
