// Package writer implements the content writer capability: persisting
// a crawled page's extracted content as durable storage artifacts.
//
// MarkdownWriter mirrors each page to disk as a Markdown file grouped
// by domain, converting the raw markup with html-to-markdown. Multi
// fans a single page out to several writers, which is how the disk
// mirror and the crawl database both receive every page.
//
// Writer failures are deliberately non-fatal to traversal: the
// controller logs them and counts the page as visited, since the fetch
// itself succeeded.
package writer
