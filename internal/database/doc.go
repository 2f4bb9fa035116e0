// Package database provides SQLite-backed persistence for crawl
// history.
//
// Each crawl run gets one row in the runs table and one row per visited
// page in the pages table, keyed by (run, url) with the page's content
// hash. This is what makes `webgrab history` work and allows comparing
// a site between runs.
//
// Design decision: We use modernc.org/sqlite (pure Go) rather than a
// cgo-based driver because:
//  1. Cross-compilation stays trivial
//  2. No system library dependency for users
//  3. Performance is more than sufficient for crawl bookkeeping
package database
