package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to keep a crawl polite and bounded by default.
const (
	// DefaultMaxDepth bounds link traversal from the start URL.
	// Depth 0 means only the start page; 3 covers most small sites'
	// navigation structure without wandering into pagination abysses.
	DefaultMaxDepth = 3

	// DefaultMaxPages is the hard ceiling on pages fetched per run.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. Users can override this via the --max-pages CLI flag.
	DefaultMaxPages = 100

	// DefaultDelay is the delay between HTTP requests during crawling.
	// This is a politeness setting to avoid overwhelming target sites.
	// 1 second is conservative and respectful of server resources.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout is the per-request timeout. 30 seconds is generous
	// for clearnet sites while still bounding a stuck fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the extra-attempt budget for transient fetch
	// failures (timeouts, 5xx). The first attempt is not counted.
	DefaultRetries = 2

	// DefaultWorkers is the concurrent fetcher count. A single worker
	// keeps request ordering predictable; the politeness delay bounds
	// the aggregate rate regardless.
	DefaultWorkers = 1

	// DefaultOutputDir is where mirrored pages are written, one
	// subdirectory per domain.
	DefaultOutputDir = "sites"

	// DefaultBatchSize is the number of concurrent crawls when multiple
	// seed URLs are given. Each crawl throttles itself per site, so a
	// small batch keeps total resource usage predictable.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies webgrab in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows
	// operators to identify crawler traffic in their logs.
	DefaultUserAgent = "webgrab/1.0 (+https://github.com/nabetama/webgrab)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "webgrab"
)

// Config holds all configuration options for webgrab.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// StartURL is the seed URL the crawl begins from.
	// It must be an absolute http or https URL.
	StartURL string

	// MaxDepth is the maximum link distance from the start URL.
	// Depth 0 means only fetch the start page.
	MaxDepth int

	// MaxPages is the hard ceiling on pages fetched per run.
	// The crawl stops cleanly once this many pages have been visited.
	MaxPages int

	// Delay is the politeness delay between HTTP requests.
	// Lower values may cause rate limiting or service disruption.
	Delay time.Duration

	// Timeout is the per-request fetch timeout.
	Timeout time.Duration

	// Retries is the number of extra attempts a transient fetch failure
	// gets before the URL is dropped.
	Retries int

	// Workers is the number of concurrent fetchers.
	// The politeness delay is shared, so more workers never raise the
	// aggregate request rate against the target.
	Workers int

	// BatchSize is the number of concurrent crawls when multiple seed
	// URLs are given. Only used in batch mode.
	BatchSize int

	// FollowExternal allows traversal beyond the start URL's domain.
	// When false (default) external links are recorded but never fetched.
	FollowExternal bool

	// IncludeAssets records stylesheet, script, and image references in
	// the mirrored output. Assets are never fetched or traversed.
	IncludeAssets bool

	// OutputDir is where mirrored pages are written.
	OutputDir string

	// SaveHTML writes the raw HTML alongside each Markdown page.
	SaveHTML bool

	// UseBrowser renders pages with a headless browser instead of the
	// plain HTTP fetcher. Needed for sites that build their content
	// with client-side JavaScript.
	UseBrowser bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	// A descriptive User-Agent helps site operators identify crawler traffic.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .webgrab in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file. This is populated by LoadConfigFile.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When empty, run history is not persisted.
	// Defaults to the XDG data directory (~/.local/share/webgrab on Linux).
	DBDir string

	// SaveToDB indicates whether to record the run in the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, retries).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:    DefaultMaxDepth,
		MaxPages:    DefaultMaxPages,
		Delay:       DefaultDelay,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		Workers:     DefaultWorkers,
		BatchSize:   DefaultBatchSize,
		OutputDir:   DefaultOutputDir,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for webgrab.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/webgrab
// On macOS: ~/Library/Application Support/webgrab
// On Windows: %LOCALAPPDATA%\webgrab
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webgrab.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for webgrab.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return ErrNoStartURL
	}

	// Depth 0 is valid: it fetches only the start page.
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	// The ceiling must allow at least the start page.
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	// Delay of zero disables throttling; negative makes no sense.
	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
