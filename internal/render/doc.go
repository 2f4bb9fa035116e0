// Package render implements the page renderer capability: given a URL,
// produce the page's title, rendered text, raw markup, and the link and
// asset lists extracted from its DOM.
//
// Two renderers are provided:
//
//   - HTTPRenderer fetches over plain HTTP and parses the static markup
//     with golang.org/x/net/html. This is the default.
//   - ChromeRenderer drives headless Chrome via chromedp and exports
//     the DOM after scripts have run, for JavaScript-heavy sites.
//
// Both produce the same model.PageResult, so the traversal controller
// is indifferent to which one it was handed.
//
// Fetch failures are reported as *FetchError; IsTransient classifies
// them for the controller's retry policy. Network errors, timeouts, and
// 5xx responses are retryable; 4xx responses and non-HTML content are not.
package render
