// Package crawler implements the traversal controller that drives a
// crawl run from seed to terminal state.
//
// Design decision: the controller owns the run lifecycle but delegates
// every policy decision to a collaborator, because:
//  1. Admission policy (dedup, depth, domain scope, page ceiling) lives
//     in the frontier, so concurrency correctness is testable in
//     isolation from network I/O.
//  2. Fetching is behind the Renderer interface, so tests drive the
//     loop with in-memory fakes and the CLI swaps HTTP for a headless
//     browser without touching the loop.
//  3. Persistence is behind the ContentWriter interface, so a write
//     failure can never be confused with a fetch failure: the page
//     stays counted as visited.
//
// The worker pool shares a single rate limiter, so the politeness
// delay bounds the aggregate request rate against the target site
// regardless of how many workers run.
package crawler
