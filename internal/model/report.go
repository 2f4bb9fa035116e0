package model

import "time"

// Crawl states reported by the traversal controller.
//
// The controller moves IDLE -> RUNNING -> {COMPLETED, ABORTED}.
// COMPLETED and ABORTED are terminal.
const (
	// StateIdle means the crawl has not started yet.
	StateIdle = "idle"

	// StateRunning means the crawl loop is processing frontier items.
	StateRunning = "running"

	// StateCompleted means the crawl finished naturally: either the page
	// ceiling was reached or the frontier was exhausted.
	StateCompleted = "completed"

	// StateAborted means the crawl stopped early, either from a fatal
	// setup error or an operator-requested interruption.
	StateAborted = "aborted"
)

// CrawlReport is the final summary of a crawl run.
// It is produced once by the traversal controller and consumed by the
// report writers and the crawl database.
type CrawlReport struct {
	// StartURL is the seed URL the crawl began from.
	StartURL string `json:"start_url"`

	// BaseDomain is the domain that scoped admission decisions.
	BaseDomain string `json:"base_domain"`

	// State is the terminal controller state (completed or aborted).
	State string `json:"state"`

	// PagesVisited is the number of pages successfully fetched.
	// Never exceeds the configured page ceiling.
	PagesVisited int `json:"pages_visited"`

	// PagesFailed is the number of URLs dropped after exhausting retries.
	PagesFailed int `json:"pages_failed"`

	// URLsSeen is the number of unique canonical URLs admitted or visited.
	URLsSeen int `json:"urls_seen"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`

	// Failures lists every URL dropped after retries were exhausted.
	Failures []FailedURL `json:"failures,omitempty"`
}

// FailedURL records a single dropped URL and why it failed.
type FailedURL struct {
	// URL is the canonical URL that could not be fetched.
	URL string `json:"url"`

	// Depth is the frontier depth the URL was queued at.
	Depth int `json:"depth"`

	// Error is the final fetch error message.
	Error string `json:"error"`
}

// Completed reports whether the crawl reached a natural end.
func (r *CrawlReport) Completed() bool {
	return r.State == StateCompleted
}
