package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoStartURL is returned when no start URL is specified.
	ErrNoStartURL = errors.New("no start URL specified: provide a URL to crawl")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	// Depth 0 is valid and fetches only the start page.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page ceiling is not positive.
	// At least the start page must be allowed.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate fetch failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry budget is negative.
	// Use 0 to disable retrying transient failures.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// Zero workers would mean no crawling at all.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent crawls at all.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
