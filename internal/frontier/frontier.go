package frontier

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nabetama/webgrab/internal/urlutil"
)

// Item is a single unit of pending crawl work: a URL and its distance
// from the seed. Items are created at admission time and consumed
// exactly once when dequeued for fetch.
type Item struct {
	// URL is the canonical form of the admitted URL.
	URL string

	// Depth is the item's distance from the seed URL. The seed is depth 0.
	Depth int
}

// Frontier is the queue of pending crawl items plus the set of canonical
// URLs already admitted or visited. It is the sole correctness boundary
// preventing duplicate visits and page-ceiling overruns, so every state
// transition happens under one mutex.
//
// Design decision: Dedup happens at admission time rather than at visit
// time because:
//  1. It bounds queue growth: no URL is ever queued twice
//  2. No wasted fetch is ever scheduled for a URL already queued
//  3. The seen set grows with distinct discovered URLs, which is
//     acceptable for a bounded single-run crawl
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// seen holds canonical URLs already admitted or visited.
	// It grows monotonically and is never pruned.
	seen map[string]struct{}

	// queue holds pending items in first-discovered order.
	queue []Item

	// visited counts pages whose fetch succeeded (committed visits).
	visited int

	// inflight counts reserved visit slots: items handed out by Next
	// whose fetch has not yet been committed or released.
	inflight int

	closed bool

	maxDepth       int
	maxPages       int
	baseDomain     string
	followExternal bool
	ignorePatterns []string
	followPatterns []string
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithFollowExternal allows admission of URLs outside the base domain.
func WithFollowExternal(follow bool) Option {
	return func(f *Frontier) {
		f.followExternal = follow
	}
}

// WithIgnorePatterns sets URL path patterns to reject at admission.
// Patterns use glob syntax (e.g. "/admin/*", "*.php").
func WithIgnorePatterns(patterns []string) Option {
	return func(f *Frontier) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts admission to URL paths matching at least
// one pattern. Empty means all paths are allowed.
func WithFollowPatterns(patterns []string) Option {
	return func(f *Frontier) {
		f.followPatterns = patterns
	}
}

// New creates a Frontier scoped to baseDomain with the given depth and
// page ceilings.
func New(baseDomain string, maxDepth, maxPages int, opts ...Option) *Frontier {
	f := &Frontier{
		seen:       make(map[string]struct{}),
		queue:      make([]Item, 0),
		maxDepth:   maxDepth,
		maxPages:   maxPages,
		baseDomain: baseDomain,
	}
	f.cond = sync.NewCond(&f.mu)

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Admit normalizes the URL and, if it passes every admission check,
// atomically inserts its canonical form into the seen set and pushes a
// pending item. It returns false without side effects when the URL is
// already seen, exceeds the depth limit, is malformed, is not
// crawlable, uses a non-HTTP(S) scheme, falls outside the base domain
// while external following is off, or is rejected by the path patterns.
//
// The check-and-insert is atomic: for any set of concurrent Admit calls
// with the same canonical URL, at most one ever returns true.
func (f *Frontier) Admit(rawURL string, depth int) bool {
	if depth < 0 || depth > f.maxDepth {
		return false
	}

	canonical := urlutil.Normalize(rawURL)

	if !urlutil.IsValid(canonical) || !urlutil.IsCrawlable(canonical) {
		return false
	}

	if !strings.HasPrefix(canonical, "http://") && !strings.HasPrefix(canonical, "https://") {
		return false
	}

	if !f.followExternal && !urlutil.IsSameDomain(canonical, f.baseDomain) {
		return false
	}

	if !f.pathAllowed(canonical) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.seen[canonical]; ok {
		return false
	}

	f.seen[canonical] = struct{}{}
	f.queue = append(f.queue, Item{URL: canonical, Depth: depth})
	f.cond.Signal()

	return true
}

// Next pops the oldest pending item and reserves a visit slot for it.
// It blocks while the queue is empty but other fetches are in flight,
// since those fetches may still enqueue new work. It returns ok=false
// when the crawl is finished: the page ceiling has been reached, the
// queue is exhausted with nothing in flight, or the frontier is closed.
//
// Combining dequeue and reservation in one critical section is what
// makes the page ceiling atomic: commits never outnumber reservations,
// and reservations are only granted while visited+inflight < maxPages.
func (f *Frontier) Next() (Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed || f.visited >= f.maxPages {
			return Item{}, false
		}

		if len(f.queue) > 0 && f.visited+f.inflight < f.maxPages {
			item := f.queue[0]
			f.queue = f.queue[1:]
			f.inflight++
			return item, true
		}

		// Exhausted: nothing queued and nothing in flight that could
		// enqueue more.
		if len(f.queue) == 0 && f.inflight == 0 {
			return Item{}, false
		}

		f.cond.Wait()
	}
}

// Commit finishes a reservation after a successful fetch, counting the
// page as visited.
func (f *Frontier) Commit() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	f.visited++
	f.cond.Broadcast()
}

// Release returns a reserved slot after a failed fetch so another URL
// can use it. The failed URL stays in the seen set and is never retried
// through the frontier.
func (f *Frontier) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	f.cond.Broadcast()
}

// Close wakes every blocked Next caller and rejects further admissions.
// Used for external cancellation; a closed frontier never reopens.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// HasCapacity reports whether the visited-page count is still below the
// page ceiling.
func (f *Frontier) HasCapacity() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited < f.maxPages
}

// PagesVisited returns the number of committed visits.
func (f *Frontier) PagesVisited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited
}

// SeenCount returns the number of unique canonical URLs admitted so far.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// QueueLen returns the number of pending items.
func (f *Frontier) QueueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// pathAllowed applies the ignore/follow glob patterns to the URL path.
//
// Logic:
//  1. A path matching any ignore pattern is rejected
//  2. When follow patterns are set, the path must match at least one
//  3. Otherwise the path is allowed
func (f *Frontier) pathAllowed(canonical string) bool {
	if len(f.ignorePatterns) == 0 && len(f.followPatterns) == 0 {
		return true
	}

	u, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(f.followPatterns) > 0 {
		for _, pattern := range f.followPatterns {
			if matchPattern(pattern, p) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks a path against a glob pattern.
// Supported forms:
//   - "/admin/*" matches "/admin" and anything below it
//   - "*.php" matches any path ending in .php
//   - standard single-segment globs via filepath.Match
func matchPattern(pattern, p string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(p, prefix+"/") || p == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, p)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Match against the last path segment for bare filename patterns.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(p))
		if err == nil && matched {
			return true
		}
	}

	return false
}
