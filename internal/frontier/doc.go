// Package frontier implements the crawl frontier: the FIFO queue of
// admitted, not-yet-visited URLs plus the bookkeeping that prevents
// re-admission and page-ceiling overruns.
//
// # Invariants
//
// The frontier is the single source of truth for three crawl invariants:
//
//   - No duplicate visits: a canonical URL enters the seen set at the
//     moment it is admitted, so at most one Admit call for a given
//     canonical URL ever succeeds, across any interleaving.
//   - Depth monotonicity: no item deeper than the configured maximum is
//     ever admitted.
//   - Page ceiling: Next hands out a visit slot only while
//     visited+inflight is below the maximum, so committed visits can
//     never exceed it regardless of worker count.
//
// # Concurrency
//
// All state lives behind one mutex with a condition variable. Next
// blocks while the queue is drained but fetches are still in flight,
// because an in-flight fetch may discover and enqueue more work.
// Workers finish a reservation with Commit (fetch succeeded) or Release
// (fetch dropped), and Close wakes everything up for cancellation.
package frontier
