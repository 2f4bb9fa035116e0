package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nabetama/webgrab/internal/config"
	"github.com/nabetama/webgrab/internal/crawler"
	"github.com/nabetama/webgrab/internal/database"
	"github.com/nabetama/webgrab/internal/log"
	"github.com/nabetama/webgrab/internal/model"
	"github.com/nabetama/webgrab/internal/render"
	"github.com/nabetama/webgrab/internal/report"
	"github.com/nabetama/webgrab/internal/urlutil"
	"github.com/nabetama/webgrab/internal/writer"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url> [url...]",
		Short: "Crawl a website and mirror its pages as Markdown",
		Long: `Crawl fetches a website starting from the given URL and writes each
page as a Markdown document under the output directory, one subdirectory
per domain.

The crawl stays on the start URL's domain unless --follow-external is
set, visits at most --max-pages pages up to --depth links deep, and
waits --delay between requests.

Examples:
  # Mirror a site with default bounds (depth 3, 100 pages, 1s delay)
  webgrab crawl https://example.com

  # Shallow but wide: only directly linked pages, up to 500 of them
  webgrab crawl -d 1 -p 500 https://example.com

  # Crawl several sites concurrently
  webgrab crawl https://one.example https://two.example

  # Render JavaScript-heavy pages with a headless browser
  webgrab crawl --browser https://app.example.com

  # Keep the raw HTML next to each Markdown file
  webgrab crawl --save-html https://example.com

  # Write a JSON run summary to a file
  webgrab crawl --json --output report.json https://example.com

Configuration file (.webgrab) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/logout"
    docs.example.com:
      depth: 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl bounds
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the start URL (0 = start page only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch per run")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Politeness delay between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request fetch timeout")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Extra attempts for transient fetch failures")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetchers (the delay still bounds the aggregate rate)")

	// Scope
	cmd.Flags().Bool("follow-external", false,
		"Also crawl links that leave the start URL's domain")
	cmd.Flags().Bool("include-assets", false,
		"Record stylesheet, script, and image references in the output")

	// Fetching
	cmd.Flags().Bool("browser", false,
		"Render pages with a headless browser (needed for JavaScript-built sites)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for requests")

	// Output
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for mirrored pages")
	cmd.Flags().Bool("save-html", false,
		"Write the raw HTML alongside each Markdown page")

	// Batch crawling
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls when multiple URLs are given")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webgrab in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")
	cmd.Flags().String("output", "",
		"Write the run summary to the specified file path")

	// History database
	cmd.Flags().Bool("no-db", false,
		"Skip recording the run in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with redaction of cookies and auth headers
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, args, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Retries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.FollowExternal, err = cmd.Flags().GetBool("follow-external")
	if err != nil {
		return nil, err
	}

	cfg.IncludeAssets, err = cmd.Flags().GetBool("include-assets")
	if err != nil {
		return nil, err
	}

	cfg.UseBrowser, err = cmd.Flags().GetBool("browser")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.SaveHTML, err = cmd.Flags().GetBool("save-html")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	// The first URL doubles as the crawl seed for single-target runs.
	cfg.StartURL = args[0]

	return cfg, nil
}

// runCrawl executes the crawl for one or more seed URLs.
func runCrawl(ctx context.Context, cfg *config.Config, seeds []string, logger *slog.Logger) error {
	logger.Info("starting webgrab",
		"seeds", seeds,
		"outputDir", cfg.OutputDir,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("history database opened", "dir", cfg.DBDir)
	}

	if len(seeds) > 1 {
		return runBatchCrawl(ctx, cfg, seeds, db, logger)
	}

	return runSingleCrawl(ctx, cfg, seeds[0], db, logger)
}

// runSingleCrawl crawls one seed with full site-config and database wiring.
func runSingleCrawl(ctx context.Context, cfg *config.Config, seed string, db *database.CrawlDB, logger *slog.Logger) error {
	domain := seedDomain(seed)
	site := cfg.SiteConfigs.GetSiteConfig(domain)

	savers := []writer.Saver{
		writer.NewMarkdownWriter(cfg.OutputDir, writer.WithSaveHTML(cfg.SaveHTML)),
	}

	var runID int64
	if db != nil {
		var err error
		runID, err = db.StartRun(ctx, seed, domain)
		if err != nil {
			return fmt.Errorf("failed to record run start: %w", err)
		}
		savers = append(savers, db.NewPageSaver(runID))
	}

	c := newCrawler(cfg, site, writer.NewMulti(savers...), logger)

	fmt.Printf("Crawling %s...\n", seed)
	startTime := time.Now()

	crawlReport, err := c.Run(ctx, seed)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Printf("Crawl %s in %s: %d pages\n\n",
		crawlReport.State,
		time.Since(startTime).Round(time.Millisecond),
		crawlReport.PagesVisited,
	)

	if err := outputReport(cfg, crawlReport); err != nil {
		logger.Error("report output failed", "error", err)
	}

	if db != nil {
		// Record the outcome even when the crawl was cancelled.
		if err := db.FinishRun(context.WithoutCancel(ctx), runID, crawlReport); err != nil {
			logger.Error("failed to record run outcome", "error", err)
		}
	}

	return nil
}

// runBatchCrawl crawls multiple seeds concurrently using BatchRunner.
func runBatchCrawl(ctx context.Context, cfg *config.Config, seeds []string, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d sites (concurrency: %d)...\n\n",
		len(seeds), cfg.BatchSize)

	startTime := time.Now()

	// Batch mode applies the config file defaults only; per-site cookies
	// and headers would require one renderer per seed.
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Sites) > 0 {
		logger.Warn("batch mode uses default site config only; per-site settings are ignored",
			"siteCount", len(cfg.SiteConfigs.Sites))
		fmt.Fprintf(os.Stderr, "Warning: per-site configurations are ignored in batch mode. Crawl sites one at a time to apply them.\n\n")
	}

	mdw := writer.NewMarkdownWriter(cfg.OutputDir, writer.WithSaveHTML(cfg.SaveHTML))

	var siteDefaults config.SiteConfig
	if cfg.SiteConfigs != nil {
		siteDefaults = cfg.SiteConfigs.Defaults
	}

	br := crawler.NewBatchRunner(
		func() *crawler.Crawler {
			return newCrawler(cfg, siteDefaults, mdw, logger)
		},
		crawler.WithConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	err := br.RunWithCallback(ctx, seeds, func(r *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if r == nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] Crawl failed: %s\n", index+1, len(seeds), seeds[index])
			return
		}

		fmt.Printf("[%d/%d] Crawl %s: %s (%d pages)\n",
			index+1, len(seeds), r.State, r.StartURL, r.PagesVisited)

		if err := outputReport(cfg, r); err != nil {
			logger.Error("report output failed", "seed", r.StartURL, "error", err)
		}

		if db != nil {
			if err := recordRun(context.WithoutCancel(ctx), db, r); err != nil {
				logger.Error("failed to record run", "seed", r.StartURL, "error", err)
			}
		}
	})

	fmt.Printf("\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	return err
}

// recordRun persists a finished run's summary to the history database.
// Batch mode saves no per-page rows; pages are only on disk.
func recordRun(ctx context.Context, db *database.CrawlDB, r *model.CrawlReport) error {
	runID, err := db.StartRun(ctx, r.StartURL, r.BaseDomain)
	if err != nil {
		return err
	}
	return db.FinishRun(ctx, runID, r)
}

// newCrawler builds a Crawler from the config and a site-specific override.
func newCrawler(cfg *config.Config, site config.SiteConfig, saver writer.Saver, logger *slog.Logger) *crawler.Crawler {
	// Site-specific depth overrides the global setting.
	depth := cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}

	var renderer crawler.Renderer
	if cfg.UseBrowser {
		renderer = render.NewChromeRenderer(
			render.WithChromeUserAgent(cfg.UserAgent),
			render.WithChromeMaxBodySize(cfg.MaxBodySize),
			render.WithConcurrentSessions(cfg.Workers),
		)
	} else {
		httpOpts := []render.HTTPOption{
			render.WithUserAgent(cfg.UserAgent),
			render.WithMaxBodySize(cfg.MaxBodySize),
		}
		if site.Cookie != "" {
			httpOpts = append(httpOpts, render.WithCookie(site.Cookie))
		}
		if len(site.Headers) > 0 {
			httpOpts = append(httpOpts, render.WithHeaders(site.Headers))
		}
		renderer = render.NewHTTPRenderer(httpOpts...)
	}

	return crawler.New(renderer, saver,
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.Delay),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithRetries(cfg.Retries),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithFollowExternal(cfg.FollowExternal),
		crawler.WithIncludeAssets(cfg.IncludeAssets),
		crawler.WithPathPatterns(site.IgnorePatterns, site.FollowPatterns),
		crawler.WithLogger(logger),
	)
}

// seedDomain extracts the domain used for site-config lookups.
func seedDomain(seed string) string {
	if d := urlutil.Domain(urlutil.Normalize(seed)); d != "" {
		return d
	}
	return seed
}

// outputReport outputs the run summary in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions;
		// summaries may mention cookie-gated URLs.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(crawlReport)
	return err
}
