package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/storefront/internal/csp"
)

// DefaultFileName is the database file created inside the data directory.
const DefaultFileName = "violations.db"

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrNotFound is returned when a database file is required but missing.
	ErrNotFound = errors.New("violation database not found")
	// ErrIsDirectory is returned when the database path names a directory.
	ErrIsDirectory = errors.New("violation database path is a directory")
)

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the server.
func DefaultOptions() Options {
	return Options{CreateIfNotExists: true, EnableWAL: true}
}

// ViolationDB is a SQLite store of CSP violations.
type ViolationDB struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Record is a stored violation group.
type Record struct {
	ID          int64         `json:"id"`
	Fingerprint string        `json:"fingerprint"`
	Violation   csp.Violation `json:"violation"`
	Count       int64         `json:"count"`
	FirstSeen   time.Time     `json:"firstSeen"`
	LastSeen    time.Time     `json:"lastSeen"`
}

// Open opens the database file at path. Callers resolving a data directory
// join DefaultFileName themselves.
func Open(path string, opts Options) (*ViolationDB, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	vdb := &ViolationDB{db: db, path: path, now: time.Now}
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := vdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return vdb, nil
}

// Path returns the database file path.
func (v *ViolationDB) Path() string { return v.path }

// Close closes the database.
func (v *ViolationDB) Close() error {
	return v.db.Close()
}

func (v *ViolationDB) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS violations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL UNIQUE,
		document_uri TEXT NOT NULL,
		referrer TEXT,
		violated_directive TEXT,
		effective_directive TEXT,
		blocked_uri TEXT,
		source_file TEXT,
		line_number INTEGER,
		column_number INTEGER,
		disposition TEXT,
		status_code INTEGER,
		sample TEXT,
		user_agent TEXT,
		count INTEGER NOT NULL DEFAULT 1,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_violations_directive ON violations(effective_directive);
	CREATE INDEX IF NOT EXISTS idx_violations_last_seen ON violations(last_seen);
	`
	_, err := v.db.ExecContext(context.Background(), schema)
	return err
}

// Insert stores vi, merging it into the group with the same fingerprint.
// The newest report's details replace the stored ones.
func (v *ViolationDB) Insert(ctx context.Context, vi csp.Violation) error {
	const query = `
	INSERT INTO violations (
		fingerprint, document_uri, referrer, violated_directive, effective_directive,
		blocked_uri, source_file, line_number, column_number, disposition,
		status_code, sample, user_agent, count, first_seen, last_seen
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(fingerprint) DO UPDATE SET
		document_uri = excluded.document_uri,
		line_number = excluded.line_number,
		column_number = excluded.column_number,
		sample = excluded.sample,
		user_agent = excluded.user_agent,
		count = violations.count + 1,
		last_seen = excluded.last_seen
	`
	now := v.now().UTC().Format(timeLayout)
	_, err := v.db.ExecContext(ctx, query,
		vi.Fingerprint(), vi.DocumentURI, vi.Referrer, vi.ViolatedDirective, vi.Directive(),
		vi.BlockedURI, vi.SourceFile, vi.LineNumber, vi.ColumnNumber, vi.Disposition,
		vi.StatusCode, vi.Sample, vi.UserAgent, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	// Directive keeps only groups with this effective directive.
	Directive string

	// Since keeps only groups seen at or after this time.
	Since time.Time

	// Limit caps the result; zero means no limit.
	Limit int
}

// List returns violation groups, most recently seen first.
func (v *ViolationDB) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `
	SELECT id, fingerprint, document_uri, referrer, violated_directive, effective_directive,
		blocked_uri, source_file, line_number, column_number, disposition, status_code,
		sample, user_agent, count, first_seen, last_seen
	FROM violations
	WHERE 1=1
	`
	args := make([]any, 0, 3)
	if opts.Directive != "" {
		query += " AND effective_directive = ?"
		args = append(args, opts.Directive)
	}
	if !opts.Since.IsZero() {
		query += " AND last_seen >= ?"
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	query += " ORDER BY last_seen DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var out []Record
	for rows.Next() {
		var (
			r                                                   Record
			referrer, violated, effective, blocked, source      sql.NullString
			disposition, sample, userAgent, firstSeen, lastSeen sql.NullString
			line, column, status                                sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.Violation.DocumentURI, &referrer, &violated, &effective,
			&blocked, &source, &line, &column, &disposition, &status,
			&sample, &userAgent, &r.Count, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		r.Violation.Referrer = referrer.String
		r.Violation.ViolatedDirective = violated.String
		r.Violation.EffectiveDirective = effective.String
		r.Violation.BlockedURI = blocked.String
		r.Violation.SourceFile = source.String
		r.Violation.LineNumber = int(line.Int64)
		r.Violation.ColumnNumber = int(column.Int64)
		r.Violation.Disposition = disposition.String
		r.Violation.StatusCode = int(status.Int64)
		r.Violation.Sample = sample.String
		r.Violation.UserAgent = userAgent.String
		r.FirstSeen = parseTimestamp(firstSeen.String)
		r.LastSeen = parseTimestamp(lastSeen.String)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes groups last seen before cutoff and returns how many were removed.
func (v *ViolationDB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := v.db.ExecContext(ctx, "DELETE FROM violations WHERE last_seen < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune violations: %w", err)
	}
	return res.RowsAffected()
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
