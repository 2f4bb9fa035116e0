package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nabetama/webgrab/internal/model"
	"github.com/nabetama/webgrab/internal/render"
	"github.com/nabetama/webgrab/internal/urlutil"
)

// fakeRenderer serves canned pages keyed by canonical URL and counts
// how many render attempts each URL received.
type fakeRenderer struct {
	mu       sync.Mutex
	pages    map[string]*model.PageResult
	failures map[string]error
	// failuresLeft makes a URL fail that many times before succeeding.
	failuresLeft map[string]int
	attempts     map[string]int
	delay        time.Duration
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pages:        make(map[string]*model.PageResult),
		failures:     make(map[string]error),
		failuresLeft: make(map[string]int),
		attempts:     make(map[string]int),
	}
}

func (r *fakeRenderer) addPage(pageURL, title string, links ...string) {
	page := &model.PageResult{
		URL:        pageURL,
		Title:      title,
		Text:       title,
		HTML:       "<html><body>" + title + "</body></html>",
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}
	for _, link := range links {
		page.Links = append(page.Links, model.Link{URL: link})
	}
	r.pages[urlutil.Normalize(pageURL)] = page
}

func (r *fakeRenderer) Render(ctx context.Context, pageURL string) (*model.PageResult, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := urlutil.Normalize(pageURL)
	r.attempts[key]++

	if left, ok := r.failuresLeft[key]; ok && left > 0 {
		r.failuresLeft[key] = left - 1
		return nil, &render.FetchError{URL: pageURL, StatusCode: 503}
	}
	if err, ok := r.failures[key]; ok {
		return nil, err
	}
	page, ok := r.pages[key]
	if !ok {
		return nil, &render.FetchError{URL: pageURL, StatusCode: 404}
	}
	// Return a copy so the controller's mutations never alias the fixture.
	clone := *page
	clone.Links = append([]model.Link(nil), page.Links...)
	return &clone, nil
}

func (r *fakeRenderer) attemptCount(pageURL string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[urlutil.Normalize(pageURL)]
}

// fakeWriter collects saved pages in memory.
type fakeWriter struct {
	mu    sync.Mutex
	pages []*model.PageResult
	err   error
}

func (w *fakeWriter) Save(_ context.Context, page *model.PageResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.pages = append(w.pages, page)
	return nil
}

func (w *fakeWriter) saved() []*model.PageResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*model.PageResult(nil), w.pages...)
}

func TestCrawlerRunSinglePage(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home")
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0))

	if got := c.State(); got != model.StateIdle {
		t.Errorf("State() before Run = %q, want %q", got, model.StateIdle)
	}

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.State != model.StateCompleted {
		t.Errorf("report.State = %q, want %q", report.State, model.StateCompleted)
	}
	if got := c.State(); got != model.StateCompleted {
		t.Errorf("State() after Run = %q, want %q", got, model.StateCompleted)
	}
	if report.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1", report.PagesVisited)
	}
	if got := len(writer.saved()); got != 1 {
		t.Errorf("saved pages = %d, want 1", got)
	}
}

func TestCrawlerRunInvalidSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		seed string
	}{
		{name: "empty", seed: ""},
		{name: "no scheme", seed: "example.com/page"},
		{name: "unsupported scheme", seed: "ftp://example.com/file"},
		{name: "garbage", seed: "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(newFakeRenderer(), &fakeWriter{}, WithDelay(0))
			_, err := c.Run(context.Background(), tt.seed)
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("Run(%q) error = %v, want ErrInvalidSeed", tt.seed, err)
			}
			if got := c.State(); got != model.StateAborted {
				t.Errorf("State() = %q, want %q", got, model.StateAborted)
			}
		})
	}
}

func TestCrawlerPageCeiling(t *testing.T) {
	t.Parallel()

	// Seed links to 10 pages; with a ceiling of 5 the crawl must visit
	// exactly 5 pages (seed included) and no more.
	renderer := newFakeRenderer()
	var links []string
	for i := range 10 {
		link := fmt.Sprintf("http://example.com/page-%d", i)
		links = append(links, link)
		renderer.addPage(link, fmt.Sprintf("Page %d", i))
	}
	renderer.addPage("http://example.com/", "Home", links...)
	writer := &fakeWriter{}

	c := New(renderer, writer,
		WithDelay(0),
		WithMaxDepth(1),
		WithMaxPages(5),
		WithWorkers(4),
	)

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.PagesVisited != 5 {
		t.Errorf("PagesVisited = %d, want exactly 5", report.PagesVisited)
	}
	if got := len(writer.saved()); got != 5 {
		t.Errorf("saved pages = %d, want 5", got)
	}
	if report.State != model.StateCompleted {
		t.Errorf("report.State = %q, want %q", report.State, model.StateCompleted)
	}
}

func TestCrawlerDepthBound(t *testing.T) {
	t.Parallel()

	// home -> a -> b -> c; depth 1 stops after a.
	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home", "http://example.com/a")
	renderer.addPage("http://example.com/a", "A", "http://example.com/b")
	renderer.addPage("http://example.com/b", "B", "http://example.com/c")
	renderer.addPage("http://example.com/c", "C")
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(1))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.PagesVisited != 2 {
		t.Errorf("PagesVisited = %d, want 2 (seed and one hop)", report.PagesVisited)
	}
	if got := renderer.attemptCount("http://example.com/b"); got != 0 {
		t.Errorf("page beyond depth bound was fetched %d times", got)
	}
}

func TestCrawlerExternalLinksSkipped(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home",
		"http://other.example.org/one",
		"http://another.test/two",
	)
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(2))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1 (external links skipped)", report.PagesVisited)
	}

	pages := writer.saved()
	if len(pages) != 1 {
		t.Fatalf("saved pages = %d, want 1", len(pages))
	}
	for _, link := range pages[0].Links {
		if !link.External {
			t.Errorf("link %q not marked external", link.URL)
		}
	}
}

func TestCrawlerFollowExternal(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home", "http://other.test/one")
	renderer.addPage("http://other.test/one", "Elsewhere")
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(1), WithFollowExternal(true))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.PagesVisited != 2 {
		t.Errorf("PagesVisited = %d, want 2 with external traversal on", report.PagesVisited)
	}
}

func TestCrawlerRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home")
	renderer.failuresLeft[urlutil.Normalize("http://example.com/")] = 2
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithRetries(2))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := renderer.attemptCount("http://example.com/"); got != 3 {
		t.Errorf("attempts = %d, want 3 (two failures then success)", got)
	}
	if report.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1", report.PagesVisited)
	}
	if report.PagesFailed != 0 {
		t.Errorf("PagesFailed = %d, want 0", report.PagesFailed)
	}
}

func TestCrawlerDropsAfterRetryBudget(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home", "http://example.com/flaky")
	renderer.failures[urlutil.Normalize("http://example.com/flaky")] =
		&render.FetchError{URL: "http://example.com/flaky", StatusCode: 503}
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(1), WithRetries(2))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Initial attempt plus two retries.
	if got := renderer.attemptCount("http://example.com/flaky"); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if report.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1", report.PagesVisited)
	}
	if report.PagesFailed != 1 {
		t.Errorf("PagesFailed = %d, want 1", report.PagesFailed)
	}
	if len(report.Failures) != 1 || report.Failures[0].URL != "http://example.com/flaky" {
		t.Errorf("Failures = %+v, want the flaky URL recorded", report.Failures)
	}
	if report.State != model.StateCompleted {
		t.Errorf("report.State = %q, want %q (per-URL failure is not fatal)",
			report.State, model.StateCompleted)
	}
}

func TestCrawlerPermanentFailureNotRetried(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home", "http://example.com/gone")
	renderer.failures[urlutil.Normalize("http://example.com/gone")] =
		&render.FetchError{URL: "http://example.com/gone", StatusCode: 404}
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(1), WithRetries(2))

	if _, err := c.Run(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := renderer.attemptCount("http://example.com/gone"); got != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is never retried)", got)
	}
}

func TestCrawlerWriteFailureStillCounted(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home")
	writer := &fakeWriter{err: errors.New("disk full")}

	c := New(renderer, writer, WithDelay(0))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1 (fetch succeeded)", report.PagesVisited)
	}
	if report.PagesFailed != 0 {
		t.Errorf("PagesFailed = %d, want 0 (write failure is not a fetch failure)", report.PagesFailed)
	}
}

func TestCrawlerCancellation(t *testing.T) {
	t.Parallel()

	// Many slow pages, cancel mid-crawl: the run must end in the
	// aborted state with a valid partial report.
	renderer := newFakeRenderer()
	renderer.delay = 20 * time.Millisecond
	var links []string
	for i := range 50 {
		link := fmt.Sprintf("http://example.com/page-%d", i)
		links = append(links, link)
		renderer.addPage(link, fmt.Sprintf("Page %d", i))
	}
	renderer.addPage("http://example.com/", "Home", links...)
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(1))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	report, err := c.Run(ctx, "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.State != model.StateAborted {
		t.Errorf("report.State = %q, want %q", report.State, model.StateAborted)
	}
	if got := c.State(); got != model.StateAborted {
		t.Errorf("State() = %q, want %q", got, model.StateAborted)
	}
	if report.PagesVisited >= 51 {
		t.Errorf("PagesVisited = %d, want a partial count", report.PagesVisited)
	}
	if report.PagesVisited != len(writer.saved()) {
		t.Errorf("PagesVisited = %d but %d pages saved; partial output must be consistent",
			report.PagesVisited, len(writer.saved()))
	}
}

func TestCrawlerAssetsStrippedByDefault(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home")
	renderer.pages[urlutil.Normalize("http://example.com/")].Assets = &model.Assets{
		CSS: []string{"http://example.com/style.css"},
	}
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0))
	if _, err := c.Run(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pages := writer.saved()
	if len(pages) != 1 {
		t.Fatalf("saved pages = %d, want 1", len(pages))
	}
	if pages[0].Assets != nil {
		t.Errorf("Assets = %+v, want nil when asset capture is off", pages[0].Assets)
	}
}

func TestCrawlerIncludeAssets(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home")
	renderer.pages[urlutil.Normalize("http://example.com/")].Assets = &model.Assets{
		CSS: []string{"http://example.com/style.css"},
	}
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithIncludeAssets(true))
	if _, err := c.Run(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pages := writer.saved()
	if len(pages) != 1 {
		t.Fatalf("saved pages = %d, want 1", len(pages))
	}
	if pages[0].Assets == nil || len(pages[0].Assets.CSS) != 1 {
		t.Errorf("Assets = %+v, want the stylesheet reference kept", pages[0].Assets)
	}
}

func TestCrawlerDeduplicatesVariants(t *testing.T) {
	t.Parallel()

	// Three spellings of the same page must visit it once.
	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home",
		"http://example.com/about",
		"HTTP://EXAMPLE.COM/about/",
		"http://example.com:80/about",
	)
	renderer.addPage("http://example.com/about", "About")
	writer := &fakeWriter{}

	c := New(renderer, writer, WithDelay(0), WithMaxDepth(1))

	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.PagesVisited != 2 {
		t.Errorf("PagesVisited = %d, want 2 (seed plus one deduplicated page)", report.PagesVisited)
	}
	if got := renderer.attemptCount("http://example.com/about"); got != 1 {
		t.Errorf("about page fetched %d times, want 1", got)
	}
}

func TestCrawlerPolitenessDelay(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.addPage("http://example.com/", "Home",
		"http://example.com/a",
		"http://example.com/b",
	)
	renderer.addPage("http://example.com/a", "A")
	renderer.addPage("http://example.com/b", "B")
	writer := &fakeWriter{}

	delay := 30 * time.Millisecond
	c := New(renderer, writer, WithDelay(delay), WithMaxDepth(1), WithWorkers(2))

	start := time.Now()
	report, err := c.Run(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	if report.PagesVisited != 3 {
		t.Fatalf("PagesVisited = %d, want 3", report.PagesVisited)
	}
	// Three fetches share one limiter: at least two full intervals must
	// elapse even with two workers.
	if elapsed < 2*delay {
		t.Errorf("crawl finished in %v, want at least %v between fetches", elapsed, 2*delay)
	}
}
