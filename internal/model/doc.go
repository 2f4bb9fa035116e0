// Package model defines the data structures shared across webgrab.
//
// The model package holds pure data types with no behavior beyond
// convenience methods. It has no dependencies on other internal
// packages, which keeps it importable from anywhere without cycles.
//
// Key types:
//   - PageResult: everything extracted from one fetched page
//   - Link: a discovered link with anchor text and domain classification
//   - Assets: stylesheet/script/image references collected from a page
//   - CrawlReport: the final summary of a crawl run
package model
