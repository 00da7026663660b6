package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/wiki-generator/internal/types"
)

// Run kinds
const (
	KindGenerate = "generate"
	KindUpload   = "upload"
)

// Run and page statuses
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"

	PageSuccess = "success"
	PageFailed  = "failed"
)

// Run represents one generation or upload batch
type Run struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    string     `json:"project_id"`
	Kind         string     `json:"kind"`
	Mode         string     `json:"mode,omitempty"`
	Status       string     `json:"status"`
	Total        int        `json:"total"`
	SuccessCount int        `json:"success_count"`
	FailedCount  int        `json:"failed_count"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// PageResult is the outcome of one page within a run
type PageResult struct {
	RunID     uuid.UUID `json:"run_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger records batch runs. Implemented by the PostgreSQL and SQLite stores.
type Ledger interface {
	CreateRun(ctx context.Context, projectID, kind, mode string, total int) (uuid.UUID, error)
	RecordPage(ctx context.Context, runID uuid.UUID, title, status, errText string) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, result *types.BatchResult, errText string) error
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, projectID string, limit int) ([]Run, error)
	ListPageResults(ctx context.Context, runID uuid.UUID) ([]PageResult, error)
	Close() error
}

// DefaultListLimit caps ListRuns when no limit is given
const DefaultListLimit = 50

func counts(result *types.BatchResult) (int, int) {
	if result == nil {
		return 0, 0
	}
	return len(result.Success), len(result.Failed)
}
