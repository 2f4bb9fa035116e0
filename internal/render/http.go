package render

import (
	"compress/gzip"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nabetama/webgrab/internal/model"
)

// DefaultMaxBodySize limits response bodies to 5MB unless overridden.
const DefaultMaxBodySize = 5 * 1024 * 1024

// defaultUserAgent identifies webgrab in HTTP requests. A descriptive
// User-Agent lets site operators identify crawler traffic in their logs.
const defaultUserAgent = "webgrab/1.0 (+https://github.com/nabetama/webgrab)"

// HTTPRenderer fetches pages over plain HTTP and extracts their content
// with a static-DOM parser. It is the default renderer: fast, cheap,
// and sufficient for sites that don't build their DOM in JavaScript.
type HTTPRenderer struct {
	// client is the HTTP client used for all fetches.
	client *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// headers are extra request headers, typically from per-site config.
	headers map[string]string

	// cookie is an optional Cookie header value for authenticated crawls.
	cookie string

	// maxBodySize limits how much of a response body is read.
	maxBodySize int64
}

// HTTPOption configures an HTTPRenderer.
type HTTPOption func(*HTTPRenderer)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(r *HTTPRenderer) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithHeaders sets extra request headers sent with every fetch.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(r *HTTPRenderer) {
		r.headers = headers
	}
}

// WithCookie sets a Cookie header value sent with every fetch.
// Format: "name=value" or "name1=value1; name2=value2".
func WithCookie(cookie string) HTTPOption {
	return func(r *HTTPRenderer) {
		r.cookie = cookie
	}
}

// WithMaxBodySize limits the response body size read per page.
func WithMaxBodySize(size int64) HTTPOption {
	return func(r *HTTPRenderer) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
// Useful in tests and for callers with proxy requirements.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(r *HTTPRenderer) {
		if client != nil {
			r.client = client
		}
	}
}

// NewHTTPRenderer creates an HTTPRenderer with a tuned transport.
// The per-request timeout is enforced by the caller's context rather
// than the client, so one slow page cannot consume another page's budget.
func NewHTTPRenderer(opts ...HTTPOption) *HTTPRenderer {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	r := &HTTPRenderer{
		client:      &http.Client{Transport: transport},
		userAgent:   defaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render fetches a page and extracts its title, text, links, and assets.
// Timeouts and cancellation come from ctx.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (*model.PageResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, br")
	if r.cookie != "" {
		req.Header.Set("Cookie", r.cookie)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "" && mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: errNonHTML}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	markup, err := io.ReadAll(io.LimitReader(body, r.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	// Redirects may land us on a different final URL; relative links on
	// the page resolve against where we ended up, not where we started.
	finalURL := resp.Request.URL.String()

	return buildPage(finalURL, string(markup), resp.StatusCode)
}

// errNonHTML marks responses whose content type rules out link traversal.
var errNonHTML = &nonHTMLError{}

type nonHTMLError struct{}

func (*nonHTMLError) Error() string { return "non-html content" }

// decodeBody unwraps the response body according to Content-Encoding.
// We advertise gzip and brotli ourselves, so the standard library's
// transparent decompression is off and decoding is our job.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// buildPage assembles a PageResult from raw markup.
// Shared by the HTTP and headless-Chrome renderers.
func buildPage(pageURL, markup string, statusCode int) (*model.PageResult, error) {
	parsed, err := parseHTML(pageURL, strings.NewReader(markup))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	page := &model.PageResult{
		URL:        pageURL,
		Title:      parsed.title,
		Text:       extractText(markup),
		HTML:       markup,
		Links:      parsed.links,
		Assets:     parsed.assets,
		StatusCode: statusCode,
		FetchedAt:  time.Now(),
	}

	page.ComputeHash()
	page.TruncateText()
	page.TruncateHTML()

	return page, nil
}
