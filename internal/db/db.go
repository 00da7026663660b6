// Package db provides the optional run ledger: batch runs and per-page results
// stored in PostgreSQL (pgx) or SQLite (modernc).
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/wiki-generator/internal/types"
)

// Open picks the backend from the URL scheme: postgres:// and postgresql:// use
// PostgreSQL, sqlite:<path> (or a bare path / ":memory:") uses SQLite.
func Open(ctx context.Context, databaseURL string) (Ledger, error) {
	switch {
	case databaseURL == "":
		return nil, errors.New("database url is empty")
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Connect(ctx, databaseURL)
	default:
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite:"))
	}
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Ledger = (*DB)(nil)

// Connect establishes a connection pool and creates the ledger tables
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// CreateRun creates a new batch run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, projectID, kind, mode string, total int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO wiki_runs (id, project_id, kind, mode, status, total)
		 VALUES ($1, $2, $3, $4, 'running', $5)
		 RETURNING id`,
		uuid.New(), projectID, kind, mode, total,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// RecordPage stores the outcome of one page
func (db *DB) RecordPage(ctx context.Context, runID uuid.UUID, title, status, errText string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO wiki_run_pages (run_id, title, status, error_message)
		 VALUES ($1, $2, $3, $4)`,
		runID, title, status, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", title, err)
	}
	return nil
}

// CompleteRun marks a run as finished with its final counts
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, result *types.BatchResult, errText string) error {
	success, failed := counts(result)
	_, err := db.pool.Exec(ctx,
		`UPDATE wiki_runs
		 SET status = $1, success_count = $2, failed_count = $3, error_message = $4, completed_at = NOW()
		 WHERE id = $5`,
		status, success, failed, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil, nil when it does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var r Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, project_id, kind, mode, status, total, success_count, failed_count,
		        error_message, created_at, completed_at
		 FROM wiki_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.ProjectID, &r.Kind, &r.Mode, &r.Status, &r.Total, &r.SuccessCount, &r.FailedCount,
		&r.Error, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListRuns lists runs newest first, optionally for one project
func (db *DB) ListRuns(ctx context.Context, projectID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, project_id, kind, mode, status, total, success_count, failed_count,
		        error_message, created_at, completed_at
		 FROM wiki_runs
		 WHERE $1::text = '' OR project_id = $1::text
		 ORDER BY created_at DESC
		 LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Kind, &r.Mode, &r.Status, &r.Total, &r.SuccessCount,
			&r.FailedCount, &r.Error, &r.CreatedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListPageResults returns the page outcomes of a run in insertion order
func (db *DB) ListPageResults(ctx context.Context, runID uuid.UUID) ([]PageResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, title, status, error_message, created_at
		 FROM wiki_run_pages WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list page results: %w", err)
	}
	defer rows.Close()

	results := []PageResult{}
	for rows.Next() {
		var p PageResult
		if err := rows.Scan(&p.RunID, &p.Title, &p.Status, &p.Error, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS wiki_runs (
	id            UUID PRIMARY KEY,
	project_id    TEXT NOT NULL,
	kind          TEXT NOT NULL,
	mode          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	total         INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	failed_count  INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_wiki_runs_project ON wiki_runs (project_id, created_at DESC);
CREATE TABLE IF NOT EXISTS wiki_run_pages (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL REFERENCES wiki_runs (id) ON DELETE CASCADE,
	title         TEXT NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
