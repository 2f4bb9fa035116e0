// Package main provides the entry point for the webgrab CLI.
//
// Webgrab mirrors websites as Markdown. It crawls a site within polite
// bounds (depth, page ceiling, request delay) and writes each page as a
// Markdown document, one directory per domain.
//
// Usage:
//
//	webgrab crawl <url>
//	webgrab history
//
// See --help for all available options.
package main

// main is the entry point for webgrab.
func main() {
	Execute()
}
