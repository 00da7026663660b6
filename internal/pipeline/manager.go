package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/types"
)

// BatchFunc runs one batch against the progress the manager created for it.
type BatchFunc func(ctx context.Context, progress *Progress) (*types.BatchResult, error)

type batchKey struct {
	kind      string
	projectID string
}

// Manager tracks the latest batch of each kind per project and runs batches
// in background goroutines.
type Manager struct {
	mu      sync.Mutex
	batches map[batchKey]*Progress
	lastRun map[string][]string
	wg      sync.WaitGroup
	logger  *slog.Logger
	onEvent ProgressCallback
}

// NewManager returns an empty manager. onEvent, if set, receives every progress event.
func NewManager(logger *slog.Logger, onEvent ProgressCallback) *Manager {
	return &Manager{
		batches: make(map[batchKey]*Progress),
		lastRun: make(map[string][]string),
		logger:  loggerOr(logger),
		onEvent: onEvent,
	}
}

// Start launches run in a goroutine with a background context, so the batch
// outlives the request that started it. It fails with ErrBatchRunning while a
// batch of the same kind is still running for the project. For generation
// batches titles become the project's last-run page list.
func (m *Manager) Start(kind, projectID string, total int, titles []string, run BatchFunc) (*Progress, error) {
	key := batchKey{kind: kind, projectID: projectID}

	m.mu.Lock()
	if p, ok := m.batches[key]; ok && !p.Snapshot().Done() {
		m.mu.Unlock()
		return nil, ErrBatchRunning
	}
	progress := NewProgress(kind, total, m.onEvent)
	m.batches[key] = progress
	if kind == db.KindGenerate {
		m.lastRun[projectID] = append([]string(nil), titles...)
	}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("batch panicked", "project", projectID, "kind", kind, "panic", r)
				progress.Abort(nil)
			}
		}()

		if _, err := run(context.Background(), progress); err != nil {
			m.logger.Error("batch failed", "project", projectID, "kind", kind, "error", err)
		}
		if !progress.Snapshot().Done() {
			progress.Complete()
		}
	}()
	return progress, nil
}

// Snapshot returns the latest batch state of kind for a project, or an
// unknown snapshot when none was started.
func (m *Manager) Snapshot(kind, projectID string) Snapshot {
	m.mu.Lock()
	p, ok := m.batches[batchKey{kind: kind, projectID: projectID}]
	m.mu.Unlock()
	if !ok {
		return UnknownSnapshot()
	}
	return p.Snapshot()
}

// LastRunTitles returns the pages selected for the project's latest generation batch.
func (m *Manager) LastRunTitles(projectID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lastRun[projectID]...)
}

// Wait blocks until every started batch has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
