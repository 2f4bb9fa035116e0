package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nabetama/webgrab/internal/frontier"
	"github.com/nabetama/webgrab/internal/model"
	"github.com/nabetama/webgrab/internal/render"
	"github.com/nabetama/webgrab/internal/urlutil"
)

// Renderer is the page renderer capability the controller consumes:
// fetch and render one URL into its extracted content.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*model.PageResult, error)
}

// ContentWriter is the content writer capability: persist one page's
// extracted content.
type ContentWriter interface {
	Save(ctx context.Context, page *model.PageResult) error
}

// ErrInvalidSeed is returned when the start URL cannot seed a crawl.
var ErrInvalidSeed = errors.New("invalid seed URL: scheme and host are required")

// Crawler is the traversal controller. It owns one crawl run: it seeds
// the frontier, drives fetch-extract-enqueue cycles through a bounded
// worker pool, applies the politeness delay, and decides termination.
//
// A Crawler is single-use: one instance per crawl run, discarded at
// completion.
type Crawler struct {
	renderer Renderer
	writer   ContentWriter
	logger   *slog.Logger

	maxDepth      int
	maxPages      int
	delay         time.Duration
	timeout       time.Duration
	retries       int
	workers       int
	followExt     bool
	includeAssets bool
	patterns      []frontier.Option

	mu       sync.Mutex
	state    string
	failures []model.FailedURL
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus directly linked pages, etc.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithMaxPages sets the hard ceiling on visited pages.
func WithMaxPages(maxPages int) Option {
	return func(c *Crawler) {
		c.maxPages = maxPages
	}
}

// WithDelay sets the politeness delay between outbound fetches.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithTimeout sets the per-attempt fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many extra attempts a transient fetch failure
// gets before the URL is dropped.
func WithRetries(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithWorkers sets the worker pool size. The frontier admission check
// stays the correctness boundary regardless of pool size.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithFollowExternal allows traversal beyond the seed's domain.
func WithFollowExternal(follow bool) Option {
	return func(c *Crawler) {
		c.followExt = follow
	}
}

// WithIncludeAssets passes stylesheet/script/image references to the
// content writer. Assets are leaves: they are never enqueued.
func WithIncludeAssets(include bool) Option {
	return func(c *Crawler) {
		c.includeAssets = include
	}
}

// WithPathPatterns forwards ignore/follow glob patterns to the frontier.
func WithPathPatterns(ignore, follow []string) Option {
	return func(c *Crawler) {
		if len(ignore) > 0 {
			c.patterns = append(c.patterns, frontier.WithIgnorePatterns(ignore))
		}
		if len(follow) > 0 {
			c.patterns = append(c.patterns, frontier.WithFollowPatterns(follow))
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler around the given renderer and writer.
func New(renderer Renderer, writer ContentWriter, opts ...Option) *Crawler {
	c := &Crawler{
		renderer: renderer,
		writer:   writer,
		logger:   slog.Default(),
		maxDepth: 3,
		maxPages: 100,
		delay:    1 * time.Second,
		timeout:  30 * time.Second,
		retries:  2,
		workers:  1,
		state:    model.StateIdle,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the controller's current lifecycle state.
func (c *Crawler) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Crawler) setState(s string) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes the crawl from startURL and blocks until it terminates.
//
// A seed URL without scheme or host is a fatal setup error: the
// controller goes straight to the aborted state and no fetch ever
// happens. Per-URL failures during the run never unwind the loop; they
// are logged, recorded in the report, and the crawl continues.
//
// Cancellation of ctx is a clean early stop: in-flight fetches finish
// or time out, the state becomes aborted, and the returned report still
// reflects the pages visited so far.
func (c *Crawler) Run(ctx context.Context, startURL string) (*model.CrawlReport, error) {
	seed := urlutil.Normalize(startURL)
	u, err := url.Parse(seed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		c.setState(model.StateAborted)
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, startURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		c.setState(model.StateAborted)
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}

	baseDomain := u.Hostname()

	f := frontier.New(baseDomain, c.maxDepth, c.maxPages, append(c.patterns,
		frontier.WithFollowExternal(c.followExt))...)

	if !f.Admit(seed, 0) {
		c.setState(model.StateAborted)
		return nil, fmt.Errorf("%w: seed %q was not admitted", ErrInvalidSeed, startURL)
	}

	c.setState(model.StateRunning)
	started := time.Now()

	c.logger.Info("crawl started",
		"seed", seed,
		"domain", baseDomain,
		"maxDepth", c.maxDepth,
		"maxPages", c.maxPages,
		"workers", c.workers,
	)

	// One token per delay interval, shared by all workers, so the
	// outbound request rate is throttled globally rather than per
	// worker. A zero delay disables throttling.
	limiter := rate.NewLimiter(rate.Inf, 1)
	if c.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.delay), 1)
	}

	// Wake blocked Next callers when the operator cancels.
	stopWatch := context.AfterFunc(ctx, f.Close)
	defer stopWatch()

	g, gctx := errgroup.WithContext(ctx)
	for range c.workers {
		g.Go(func() error {
			return c.work(gctx, f, limiter)
		})
	}

	runErr := g.Wait()

	report := &model.CrawlReport{
		StartURL:     seed,
		BaseDomain:   baseDomain,
		PagesVisited: f.PagesVisited(),
		URLsSeen:     f.SeenCount(),
		StartedAt:    started,
		Duration:     time.Since(started),
	}

	c.mu.Lock()
	report.PagesFailed = len(c.failures)
	report.Failures = c.failures
	c.mu.Unlock()

	if runErr != nil || ctx.Err() != nil {
		c.setState(model.StateAborted)
		report.State = model.StateAborted
		c.logger.Info("crawl aborted",
			"pagesVisited", report.PagesVisited,
			"reason", errors.Join(runErr, ctx.Err()),
		)
		return report, nil
	}

	c.setState(model.StateCompleted)
	report.State = model.StateCompleted

	c.logger.Info("crawl completed",
		"pagesVisited", report.PagesVisited,
		"pagesFailed", report.PagesFailed,
		"urlsSeen", report.URLsSeen,
		"duration", report.Duration,
	)

	return report, nil
}

// work is one worker's loop: dequeue, fetch, persist, enqueue links.
func (c *Crawler) work(ctx context.Context, f *frontier.Frontier, limiter *rate.Limiter) error {
	for {
		item, ok := f.Next()
		if !ok {
			return nil
		}

		page, err := c.fetch(ctx, item, limiter)
		if err != nil {
			f.Release()
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Warn("dropping url after retries",
				"url", item.URL,
				"depth", item.Depth,
				"error", err,
			)
			c.recordFailure(item, err)
			continue
		}

		// The fetch succeeded: the page counts as visited no matter
		// what persistence does.
		f.Commit()
		page.Depth = item.Depth

		if !c.includeAssets {
			page.Assets = nil
		}

		c.classifyLinks(page)

		c.logger.Info("page visited",
			"url", page.URL,
			"depth", item.Depth,
			"pagesVisited", f.PagesVisited(),
			"links", len(page.Links),
		)

		if err := c.writer.Save(ctx, page); err != nil {
			c.logger.Warn("failed to persist page",
				"url", page.URL,
				"error", err,
			)
		}

		if item.Depth < c.maxDepth {
			for _, link := range page.Links {
				f.Admit(link.URL, item.Depth+1)
			}
		}
	}
}

// fetch renders one URL with the politeness limiter applied before
// every attempt, retrying transient failures up to the retry budget.
func (c *Crawler) fetch(ctx context.Context, item frontier.Item, limiter *rate.Limiter) (*model.PageResult, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		page, err := c.renderer.Render(attemptCtx, item.URL)
		cancel()

		if err == nil {
			return page, nil
		}
		lastErr = err

		if !render.IsTransient(err) || ctx.Err() != nil {
			break
		}

		c.logger.Debug("retrying fetch",
			"url", item.URL,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, lastErr
}

// classifyLinks marks each discovered link as in-domain or external
// relative to the page it was found on.
func (c *Crawler) classifyLinks(page *model.PageResult) {
	domain := urlutil.Domain(page.URL)
	for i := range page.Links {
		page.Links[i].External = !urlutil.IsSameDomain(page.Links[i].URL, domain)
	}
}

func (c *Crawler) recordFailure(item frontier.Item, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, model.FailedURL{
		URL:   item.URL,
		Depth: item.Depth,
		Error: err.Error(),
	})
}
