package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nabetama/webgrab/internal/config"
	"github.com/nabetama/webgrab/internal/database"
)

// NewHistoryCmd creates the history command.
// This command browses past crawl runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past crawl runs",
		Long: `History lists crawl runs recorded in the local database.

Every crawl records a run summary (seed URL, state, page counts) and,
for single-site crawls, one row per mirrored page. Use this command to
find a past run and inspect which pages it fetched.

Examples:
  # List the most recent runs
  webgrab history

  # List the last 50 runs
  webgrab history --limit 50

  # Show the pages fetched by run 12
  webgrab history --run 12

  # Machine-readable output
  webgrab history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 10,
		"Maximum number of runs to list")
	cmd.Flags().Int64P("run", "r", 0,
		"Show the pages fetched by a specific run ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no crawl history found (run 'webgrab crawl' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runID > 0 {
		return showRunPages(ctx, out, db, runID, asJSON)
	}

	return showRecentRuns(ctx, out, db, limit, asJSON)
}

// showRecentRuns lists the latest run summaries.
func showRecentRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, limit int, asJSON bool) error {
	runs, err := db.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATE\tPAGES\tFAILED\tDURATION\tURL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.State,
			r.PagesVisited,
			r.PagesFailed,
			r.Duration.Round(time.Millisecond),
			r.StartURL,
		)
	}
	return tw.Flush()
}

// showRunPages lists every page stored for one run.
func showRunPages(ctx context.Context, out io.Writer, db *database.CrawlDB, runID int64, asJSON bool) error {
	pages, err := db.PagesForRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read pages for run %d: %w", runID, err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}

	if len(pages) == 0 {
		fmt.Fprintf(out, "No pages recorded for run %d.\n", runID)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tSTATUS\tFETCHED\tURL\tTITLE")
	for _, p := range pages {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n",
			p.Depth,
			p.StatusCode,
			p.FetchedAt.Format("15:04:05"),
			p.URL,
			p.Title,
		)
	}
	return tw.Flush()
}
