package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/wiki-generator/internal/types"
)

// SQLiteDB is the single-file ledger backend
type SQLiteDB struct {
	db  *sql.DB
	now func() time.Time
}

var _ Ledger = (*SQLiteDB)(nil)

// OpenSQLite opens (or creates) a SQLite database at path and ensures the
// ledger tables exist. Use ":memory:" for an in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: writes are serialised and ":memory:" stays a single database.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLiteDB{db: sqlDB, now: time.Now}, nil
}

// Close closes the database
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// sqliteTime is fixed width so text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

func (s *SQLiteDB) timestamp() string {
	return s.now().UTC().Format(sqliteTime)
}

// CreateRun creates a new batch run record and returns its ID
func (s *SQLiteDB) CreateRun(ctx context.Context, projectID, kind, mode string, total int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wiki_runs (id, project_id, kind, mode, status, total, created_at)
		 VALUES (?, ?, ?, ?, 'running', ?, ?)`,
		id.String(), projectID, kind, mode, total, s.timestamp(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// RecordPage stores the outcome of one page
func (s *SQLiteDB) RecordPage(ctx context.Context, runID uuid.UUID, title, status, errText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wiki_run_pages (run_id, title, status, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		runID.String(), title, status, errText, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", title, err)
	}
	return nil
}

// CompleteRun marks a run as finished with its final counts
func (s *SQLiteDB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, result *types.BatchResult, errText string) error {
	success, failed := counts(result)
	_, err := s.db.ExecContext(ctx,
		`UPDATE wiki_runs
		 SET status = ?, success_count = ?, failed_count = ?, error_message = ?, completed_at = ?
		 WHERE id = ?`,
		status, success, failed, errText, s.timestamp(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

const sqliteRunColumns = `id, project_id, kind, mode, status, total, success_count, failed_count,
	error_message, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r           Run
		id, created string
		completed   sql.NullString
	)
	if err := row.Scan(&id, &r.ProjectID, &r.Kind, &r.Mode, &r.Status, &r.Total, &r.SuccessCount,
		&r.FailedCount, &r.Error, &created, &completed); err != nil {
		return nil, err
	}
	var err error
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if r.CreatedAt, err = time.Parse(sqliteTime, created); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	if completed.Valid {
		t, err := time.Parse(sqliteTime, completed.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completed.String, err)
		}
		r.CompletedAt = &t
	}
	return &r, nil
}

// GetRun retrieves a run by ID. Returns nil, nil when it does not exist.
func (s *SQLiteDB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM wiki_runs WHERE id = ?`, runID.String())
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns lists runs newest first, optionally for one project
func (s *SQLiteDB) ListRuns(ctx context.Context, projectID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM wiki_runs
		 WHERE ? = '' OR project_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		projectID, projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ListPageResults returns the page outcomes of a run in insertion order
func (s *SQLiteDB) ListPageResults(ctx context.Context, runID uuid.UUID) ([]PageResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, status, error_message, created_at
		 FROM wiki_run_pages WHERE run_id = ? ORDER BY id`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list page results: %w", err)
	}
	defer rows.Close()

	results := []PageResult{}
	for rows.Next() {
		p := PageResult{RunID: runID}
		var created string
		if err := rows.Scan(&p.Title, &p.Status, &p.Error, &created); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		if p.CreatedAt, err = time.Parse(sqliteTime, created); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS wiki_runs (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL,
		kind          TEXT NOT NULL,
		mode          TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		total         INTEGER NOT NULL DEFAULT 0,
		success_count INTEGER NOT NULL DEFAULT 0,
		failed_count  INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		completed_at  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wiki_runs_project ON wiki_runs (project_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS wiki_run_pages (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL REFERENCES wiki_runs (id) ON DELETE CASCADE,
		title         TEXT NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	)`,
}
