// Package pipeline runs generation and upload batches for a project, one page
// at a time, reporting through a Progress state object.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/types"
)

// AdapterFactory builds the platform adapter for a project.
type AdapterFactory func(p *types.Project) (platform.Adapter, error)

// DefaultAdapterFactory uses platform.New with default options and the given logger.
func DefaultAdapterFactory(logger *slog.Logger) AdapterFactory {
	return func(p *types.Project) (platform.Adapter, error) {
		return platform.New(p, platform.Options{Logger: logger})
	}
}

// runLog mirrors a batch into the optional ledger. Ledger failures are logged
// and never stop the batch.
type runLog struct {
	ledger db.Ledger
	id     uuid.UUID
	logger *slog.Logger
}

func startRun(ctx context.Context, ledger db.Ledger, logger *slog.Logger, projectID, kind, mode string, total int) *runLog {
	r := &runLog{logger: logger}
	if ledger == nil {
		return r
	}
	id, err := ledger.CreateRun(ctx, projectID, kind, mode, total)
	if err != nil {
		logger.Warn("failed to create run record", "error", err)
		return r
	}
	r.ledger, r.id = ledger, id
	logger.Debug("created run record", "run_id", id.String())
	return r
}

func (r *runLog) page(ctx context.Context, title string, err error) {
	if r.ledger == nil {
		return
	}
	status, text := db.PageSuccess, ""
	if err != nil {
		status, text = db.PageFailed, err.Error()
	}
	if lerr := r.ledger.RecordPage(ctx, r.id, title, status, text); lerr != nil {
		r.logger.Warn("failed to record page", "page", title, "error", lerr)
	}
}

func (r *runLog) finish(ctx context.Context, result *types.BatchResult, err error) {
	if r.ledger == nil {
		return
	}
	status, text := db.StatusComplete, ""
	if err != nil {
		status, text = db.StatusError, err.Error()
	}
	if lerr := r.ledger.CompleteRun(ctx, r.id, status, result, text); lerr != nil {
		r.logger.Warn("failed to complete run record", "error", lerr)
	}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func pageStatus(err error) string {
	if err != nil {
		return db.PageFailed
	}
	return db.PageSuccess
}
