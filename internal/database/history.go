package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sourcemapscan/internal/model"
)

// FileName is the name of the SQLite database file inside the data directory.
const FileName = "sourcemapscan.db"

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02 15:04:05.000000000"

// ErrNotFound is returned when a requested analysis does not exist.
var ErrNotFound = errors.New("analysis not found")

// HistoryDB provides SQLite-based storage for saved analyses.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	// The history command opens with this off so it never creates an
	// empty database just to list nothing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, the
// returned error wraps os.ErrNotExist.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the path of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per saved analysis run
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_url TEXT NOT NULL,
		final_url TEXT,
		timestamp DATETIME NOT NULL,
		script_count INTEGER NOT NULL DEFAULT 0,
		missing_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		counters_json TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_page ON analyses(page_url);
	CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Status values stored for each analysis.
const (
	StatusComplete  = "complete"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// reportStatus maps a report to its stored status.
func reportStatus(report *model.Report) string {
	switch {
	case report.Cancelled:
		return StatusCancelled
	case report.ErrorMessage != "":
		return StatusFailed
	default:
		return StatusComplete
	}
}

// SaveReport stores a finished analysis and returns its ID.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	if report == nil {
		return 0, errors.New("cannot save a nil report")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	countersJSON, err := json.Marshal(report.Counters)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize counters: %w", err)
	}

	timestamp := report.DateAnalyzed
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
	INSERT INTO analyses (page_url, final_url, timestamp, script_count, missing_count, status, counters_json, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := hdb.db.ExecContext(ctx, query,
		report.PageURL,
		report.FinalURL,
		timestamp.UTC().Format(timeLayout),
		len(report.ScriptURLs),
		report.MissingCount(),
		reportStatus(report),
		string(countersJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save analysis: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read analysis id: %w", err)
	}
	return id, nil
}

// AnalysisMetadata contains summary information about a saved analysis.
// This is used for displaying history without loading the full report.
type AnalysisMetadata struct {
	// ID is the unique identifier of the analysis in the database.
	ID int64

	// PageURL is the analyzed page.
	PageURL string

	// FinalURL is the page URL after redirects, if it differed.
	FinalURL string

	// Timestamp is when the analysis ran.
	Timestamp time.Time

	// ScriptCount is the number of script references found on the page.
	ScriptCount int

	// MissingCount is the number of sourcemaps that need uploading.
	MissingCount int

	// Status is one of StatusComplete, StatusFailed or StatusCancelled.
	Status string

	// Counters holds the per-outcome script counts.
	Counters model.Counters
}

// ListHistory returns saved analyses, newest first. An empty pageURL lists
// every page.
func (hdb *HistoryDB) ListHistory(ctx context.Context, pageURL string) ([]AnalysisMetadata, error) {
	query := `
	SELECT id, page_url, final_url, timestamp, script_count, missing_count, status, counters_json
	FROM analyses
	WHERE (? = '' OR page_url = ?)
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, pageURL, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	results := make([]AnalysisMetadata, 0)
	for rows.Next() {
		var meta AnalysisMetadata
		var finalURL sql.NullString
		var timestamp string
		var countersJSON string

		if err := rows.Scan(
			&meta.ID, &meta.PageURL, &finalURL, &timestamp,
			&meta.ScriptCount, &meta.MissingCount, &meta.Status, &countersJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		meta.FinalURL = finalURL.String
		meta.Timestamp = parseTimestamp(timestamp)
		// Malformed counters leave the zero value; the summary columns still hold.
		_ = json.Unmarshal([]byte(countersJSON), &meta.Counters) //nolint:errcheck

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetReport retrieves a saved report by its ID.
// Fields not stored as JSON (the page body, the raw error) are empty.
func (hdb *HistoryDB) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	query := `
	SELECT report_json FROM analyses
	WHERE id = ?
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListPages returns every page that has at least one saved analysis.
func (hdb *HistoryDB) ListPages(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT page_url FROM analyses
	ORDER BY page_url
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := make([]string, 0)
	for rows.Next() {
		var page string
		if err := rows.Scan(&page); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// The driver may hand back DATETIME columns in different layouts.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
