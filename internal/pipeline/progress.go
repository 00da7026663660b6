package pipeline

import (
	"sync"
	"time"

	"github.com/jonathan/wiki-generator/internal/types"
)

// Batch statuses reported by Progress.
const (
	StatusUnknown    = "unknown"
	StatusStarting   = "starting"
	StatusGenerating = "generating"
	StatusUploading  = "uploading"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// ProgressEvent represents a progress update during batch execution
type ProgressEvent struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Snapshot Snapshot `json:"snapshot"`
}

// ProgressCallback is called when batch progress occurs
type ProgressCallback func(event ProgressEvent)

// Snapshot is a copy of a batch's progress at one point in time.
type Snapshot struct {
	Status      string            `json:"status"`
	Total       int               `json:"total"`
	Completed   int               `json:"completed"`
	CurrentPage string            `json:"current_page"`
	Percent     int               `json:"percent"`
	Success     []string          `json:"success"`
	Failed      []string          `json:"failed"`
	Errors      map[string]string `json:"errors,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
}

// Done reports whether the batch has finished, successfully or not.
func (s Snapshot) Done() bool {
	return s.Status == StatusComplete || s.Status == StatusError
}

// UnknownSnapshot is reported for projects with no batch.
func UnknownSnapshot() Snapshot {
	return Snapshot{Status: StatusUnknown, Success: []string{}, Failed: []string{}}
}

// Progress is the shared state of one running batch. The batch goroutine writes
// it; readers take copies with Snapshot.
type Progress struct {
	mu       sync.Mutex
	kind     string
	status   string
	total    int
	done     int
	current  string
	result   *types.BatchResult
	err      string
	started  time.Time
	finished *time.Time
	onEvent  ProgressCallback
}

// NewProgress returns progress for a batch of total pages in the starting state.
func NewProgress(kind string, total int, onEvent ProgressCallback) *Progress {
	return &Progress{
		kind:    kind,
		status:  StatusStarting,
		total:   total,
		result:  types.NewBatchResult(),
		started: time.Now(),
		onEvent: onEvent,
	}
}

// Snapshot returns a consistent copy of the progress.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Result returns a copy of the per-page outcomes so far.
func (p *Progress) Result() *types.BatchResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result.Clone()
}

func (p *Progress) snapshotLocked() Snapshot {
	r := p.result.Clone()
	s := Snapshot{
		Status:      p.status,
		Total:       p.total,
		Completed:   p.done,
		CurrentPage: p.current,
		Success:     r.Success,
		Failed:      r.Failed,
		Errors:      r.Errors,
		Error:       p.err,
		StartedAt:   p.started,
	}
	if p.total > 0 {
		s.Percent = p.done * 100 / p.total
	}
	if p.finished != nil {
		t := *p.finished
		s.FinishedAt = &t
	}
	return s
}

// update applies fn under the lock and emits an event with the new state.
func (p *Progress) update(message string, fn func()) {
	p.mu.Lock()
	fn()
	snap := p.snapshotLocked()
	cb := p.onEvent
	p.mu.Unlock()

	if cb != nil {
		cb(ProgressEvent{Kind: p.kind, Message: message, Snapshot: snap})
	}
}

// SetTotal replaces the page count once the batch knows it.
func (p *Progress) SetTotal(n int) {
	p.update("counted pages", func() { p.total = n })
}

// Begin marks the page being worked on.
func (p *Progress) Begin(status, page string) {
	p.update("processing "+page, func() {
		p.status = status
		p.current = page
	})
}

// Succeed records a successful page and advances the counter.
func (p *Progress) Succeed(page string) {
	p.update("completed "+page, func() {
		p.result.AddSuccess(page)
		p.done++
	})
}

// Fail records a failed page and advances the counter.
func (p *Progress) Fail(page string, err error) {
	p.update("failed "+page, func() {
		p.result.AddFailure(page, err)
		p.done++
	})
}

// Complete marks the batch finished.
func (p *Progress) Complete() {
	p.update("batch complete", func() {
		p.status = StatusComplete
		p.current = ""
		now := time.Now()
		p.finished = &now
	})
}

// Abort marks the batch as failed during setup or by a fatal error.
func (p *Progress) Abort(err error) {
	p.update("batch failed", func() {
		p.status = StatusError
		p.current = ""
		if err != nil {
			p.err = err.Error()
		}
		now := time.Now()
		p.finished = &now
	})
}
