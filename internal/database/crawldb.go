package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nabetama/webgrab/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl runs and the pages
// they visited. It lets successive crawls of the same site be compared
// by URL and content hash.
//
// Design decision: We use a single database file for all crawl runs
// rather than one file per site. This keeps history queries across
// sites trivial and simplifies backup.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "webgrab.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer; multiple connections just queue.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run.
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		domain TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'running',
		pages_visited INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per page visited within a run.
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		title TEXT,
		status_code INTEGER,
		content_hash TEXT,
		depth INTEGER NOT NULL DEFAULT 0,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun records the beginning of a crawl and returns its run ID.
func (cdb *CrawlDB) StartRun(ctx context.Context, startURL, domain string) (int64, error) {
	res, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (start_url, domain) VALUES (?, ?)`,
		startURL, domain,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final report for a run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, report *model.CrawlReport) error {
	_, err := cdb.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, pages_visited = ?, pages_failed = ?, duration_ms = ? WHERE id = ?`,
		report.State, report.PagesVisited, report.PagesFailed,
		report.Duration.Milliseconds(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SavePage stores one visited page under a run.
func (cdb *CrawlDB) SavePage(ctx context.Context, runID int64, page *model.PageResult) error {
	_, err := cdb.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pages (run_id, url, title, status_code, content_hash, depth, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, page.URL, page.Title, page.StatusCode, page.Hash, page.Depth, page.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

// Run is a stored crawl run summary.
type Run struct {
	ID           int64
	StartURL     string
	Domain       string
	State        string
	PagesVisited int
	PagesFailed  int
	StartedAt    time.Time
	Duration     time.Duration
}

// RecentRuns returns up to limit runs, newest first.
func (cdb *CrawlDB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := cdb.db.QueryContext(ctx,
		`SELECT id, start_url, domain, state, pages_visited, pages_failed, started_at, duration_ms
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.StartURL, &r.Domain, &r.State,
			&r.PagesVisited, &r.PagesFailed, &r.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// PageRecord is a stored visited page.
type PageRecord struct {
	ID          int64
	RunID       int64
	URL         string
	Title       string
	StatusCode  int
	ContentHash string
	Depth       int
	FetchedAt   time.Time
}

// PagesForRun returns every page visited in a run, oldest first.
func (cdb *CrawlDB) PagesForRun(ctx context.Context, runID int64) ([]PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT id, run_id, url, title, status_code, content_hash, depth, fetched_at
		 FROM pages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var title sql.NullString
		if err := rows.Scan(&p.ID, &p.RunID, &p.URL, &title, &p.StatusCode,
			&p.ContentHash, &p.Depth, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Title = title.String
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// PageSaver adapts a run-scoped CrawlDB to the content writer
// interface, so the database can sit behind the same fan-out as the
// markdown mirror.
type PageSaver struct {
	db    *CrawlDB
	runID int64
}

// NewPageSaver creates a Saver writing pages under the given run.
func (cdb *CrawlDB) NewPageSaver(runID int64) *PageSaver {
	return &PageSaver{db: cdb, runID: runID}
}

// Save implements the content writer capability.
func (s *PageSaver) Save(ctx context.Context, page *model.PageResult) error {
	return s.db.SavePage(ctx, s.runID, page)
}
