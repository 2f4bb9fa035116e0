package render

import (
	"context"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/nabetama/webgrab/internal/model"
)

// ChromeRenderer fetches pages through headless Chrome and exports the
// DOM after scripts have run. Use it for sites that assemble their
// content in JavaScript; for everything else HTTPRenderer is much cheaper.
type ChromeRenderer struct {
	// userAgent is the User-Agent the browser session reports.
	userAgent string

	// captureDelay is how long to wait after navigation before
	// exporting the DOM, giving scripts time to settle.
	captureDelay time.Duration

	// maxBodySize caps the exported markup size.
	maxBodySize int64

	// semaphore bounds concurrent browser sessions; each one is a
	// whole Chrome process.
	semaphore chan struct{}
}

// ChromeOption configures a ChromeRenderer.
type ChromeOption func(*ChromeRenderer)

// WithChromeUserAgent sets the browser session's User-Agent.
func WithChromeUserAgent(ua string) ChromeOption {
	return func(r *ChromeRenderer) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithCaptureDelay sets the post-navigation settle time before the DOM
// is exported.
func WithCaptureDelay(d time.Duration) ChromeOption {
	return func(r *ChromeRenderer) {
		if d > 0 {
			r.captureDelay = d
		}
	}
}

// WithChromeMaxBodySize caps the exported markup size.
func WithChromeMaxBodySize(size int64) ChromeOption {
	return func(r *ChromeRenderer) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithConcurrentSessions bounds the number of simultaneous browser
// sessions. Defaults to 1.
func WithConcurrentSessions(n int) ChromeOption {
	return func(r *ChromeRenderer) {
		if n > 0 {
			r.semaphore = make(chan struct{}, n)
		}
	}
}

// NewChromeRenderer creates a headless-Chrome renderer.
func NewChromeRenderer(opts ...ChromeOption) *ChromeRenderer {
	r := &ChromeRenderer{
		userAgent:    defaultUserAgent,
		captureDelay: 1500 * time.Millisecond,
		maxBodySize:  DefaultMaxBodySize,
		semaphore:    make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render navigates to the URL in headless Chrome, waits for the capture
// delay, and extracts content from the final DOM.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (*model.PageResult, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(r.userAgent),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	var markup, finalURL string
	err := chromedp.Run(chromeCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.captureDelay),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	if int64(len(markup)) > r.maxBodySize {
		markup = markup[:r.maxBodySize]
	}
	if finalURL == "" {
		finalURL = pageURL
	}

	// Chrome does not expose the HTTP status through this path; a page
	// that rendered is treated as OK.
	return buildPage(finalURL, markup, http.StatusOK)
}
