package crawler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabetama/webgrab/internal/model"
)

// BatchRunner crawls multiple seed URLs concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchRunner rather than adding
// multi-seed support to Crawler because:
// 1. It keeps the Crawler focused on a single run
// 2. Each seed gets its own frontier, so separate sites never share
//    dedup state or page budgets
// 3. It provides cleaner separation of concerns
type BatchRunner struct {
	// crawlerFactory creates a fresh Crawler for each seed.
	// A Crawler is single-use, so every run needs its own instance.
	crawlerFactory func() *Crawler

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	mu sync.Mutex
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a new BatchRunner.
//
// The crawlerFactory function is called for each seed to create a fresh
// Crawler instance. This ensures that frontier state doesn't leak between
// runs and allows for per-run customization if needed.
func NewBatchRunner(crawlerFactory func() *Crawler, opts ...BatchOption) *BatchRunner {
	br := &BatchRunner{
		crawlerFactory: crawlerFactory,
		concurrency:    4,
	}

	for _, opt := range opts {
		opt(br)
	}

	if br.logger == nil {
		br.logger = slog.Default()
	}

	return br
}

// Run crawls multiple seeds concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each seed gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns reports in seed order, even for seeds that failed.
// A failed seed yields a nil report at its index; the failure is logged
// and other crawls continue.
func (br *BatchRunner) Run(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	br.logger.Info("starting batch crawl",
		"total_seeds", len(seeds),
		"concurrency", br.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	results := make([]*model.CrawlReport, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(br.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			br.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			c := br.crawlerFactory()
			report, err := c.Run(ctx, seed)

			br.mu.Lock()
			results[i] = report
			br.mu.Unlock()

			if err != nil {
				br.logger.Warn("crawl failed",
					"seed", seed,
					"error", err,
				)
				// Don't return the error to errgroup - we want the other
				// crawls to continue.
				return nil
			}

			br.logger.Info("crawl finished",
				"seed", seed,
				"state", report.State,
				"pagesVisited", report.PagesVisited,
			)

			return nil
		})
	}

	err := g.Wait()

	br.logger.Info("batch crawl complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// RunWithCallback crawls multiple seeds and calls a callback for each
// finished crawl. This is useful for streaming results.
//
// The callback receives the report and the index of the seed in the
// original slice. The callback is called from the goroutine that completed
// the crawl, so it should be thread-safe if it accesses shared state.
func (br *BatchRunner) RunWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	br.logger.Info("starting batch crawl with callback",
		"total_seeds", len(seeds),
		"concurrency", br.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(br.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			c := br.crawlerFactory()
			report, _ := c.Run(ctx, seed) //nolint:errcheck // A nil report marks the failure

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
