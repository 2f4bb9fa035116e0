package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaxTextSize is the maximum size of the extracted text content in bytes.
// We limit this to prevent memory issues with very large pages.
const MaxTextSize = 512 * 1024 // 512 KB

// MaxHTMLSize is the maximum size of raw markup to keep per page.
// Larger pages are truncated to this size.
const MaxHTMLSize = 5 * 1024 * 1024 // 5 MB

// PageResult holds everything the renderer extracted from a single page.
// It is owned by the traversal controller for the duration of one fetch
// cycle, handed to the content writer, and then discarded.
//
// Design decision: We store both the raw markup and the extracted text
// because:
// 1. Raw markup is needed for markdown conversion and HTML sidecar files
// 2. Extracted text is what the database snapshot stores
// 3. The hash allows change detection between crawl runs
type PageResult struct {
	// URL is the full URL the page was fetched from.
	URL string `json:"url"`

	// Title is the page title from the <title> tag.
	// Empty for pages without one.
	Title string `json:"title,omitempty"`

	// Text is the rendered text content with scripts and styles removed.
	// Limited to MaxTextSize bytes.
	Text string `json:"text,omitempty"`

	// HTML is the raw markup of the page.
	// Limited to MaxHTMLSize bytes. Excluded from JSON to reduce size.
	HTML string `json:"-"`

	// Links contains every anchor discovered on the page, already resolved
	// to absolute form.
	Links []Link `json:"links,omitempty"`

	// Assets contains stylesheet, script, and image URLs referenced by the
	// page. Nil unless asset collection was requested.
	Assets *Assets `json:"assets,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Hash is the SHA-256 hash of the raw markup.
	Hash string `json:"hash"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Depth is the page's distance from the seed URL.
	Depth int `json:"depth"`
}

// Link is a single discovered link, resolved against the page it was
// found on. Link records are ephemeral: they exist only to drive
// admission decisions and the per-page link listing.
type Link struct {
	// URL is the absolute form of the link target.
	URL string `json:"url"`

	// Text is the anchor text, trimmed.
	Text string `json:"text,omitempty"`

	// External is true when the target host is outside the crawl's
	// base domain.
	External bool `json:"external"`
}

// Assets groups the non-traversable resources referenced by a page.
// Assets are leaves: they are handed to the content writer but never
// enqueued as frontier items.
type Assets struct {
	// CSS contains stylesheet URLs from <link rel="stylesheet">.
	CSS []string `json:"css,omitempty"`

	// JS contains script URLs from <script src>.
	JS []string `json:"js,omitempty"`

	// Images contains image URLs from <img src>.
	Images []string `json:"images,omitempty"`
}

// Empty reports whether no asset URLs were collected.
func (a *Assets) Empty() bool {
	return a == nil || len(a.CSS)+len(a.JS)+len(a.Images) == 0
}

// ComputeHash calculates and sets the SHA-256 hash of the raw markup.
// This should be called after setting the HTML field.
func (p *PageResult) ComputeHash() {
	if len(p.HTML) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.HTML))
	p.Hash = hex.EncodeToString(hash[:])
}

// TruncateText enforces MaxTextSize on the extracted text.
func (p *PageResult) TruncateText() {
	if len(p.Text) > MaxTextSize {
		p.Text = p.Text[:MaxTextSize]
	}
}

// TruncateHTML enforces MaxHTMLSize on the raw markup.
func (p *PageResult) TruncateHTML() {
	if len(p.HTML) > MaxHTMLSize {
		p.HTML = p.HTML[:MaxHTMLSize]
	}
}
