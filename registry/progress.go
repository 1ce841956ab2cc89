package registry

import (
	"sync"
	"time"
)

// ProcessStatus is the state of one tracked bulk operation
type ProcessStatus string

const (
	StatusRunning   ProcessStatus = "running"
	StatusCompleted ProcessStatus = "completed"
	StatusFailed    ProcessStatus = "failed"
)

// Process is an observable snapshot of one bulk column operation
type Process struct {
	ID        string
	Operation string
	Table     string
	Column    string
	Status    ProcessStatus
	StartTime time.Time
	Progress  float64
	Error     error
}

// Tracker records bulk operations so operators can observe partial
// progress, which matters because rotation is not transactional.
type Tracker struct {
	mu        sync.RWMutex
	processes map[string]*Process
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{processes: make(map[string]*Process)}
}

// Begin registers a running process
func (t *Tracker) Begin(id, operation, table, column string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processes[id] = &Process{
		ID:        id,
		Operation: operation,
		Table:     table,
		Column:    column,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
}

// Update sets the progress fraction (0..1) of a running process
func (t *Tracker) Update(id string, progress float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.processes[id]; ok {
		p.Progress = progress
	}
}

// Complete marks the process finished
func (t *Tracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.processes[id]; ok {
		p.Status = StatusCompleted
		p.Progress = 1
	}
}

// Fail marks the process failed, retaining the progress reached so
// operators can reconcile partial state.
func (t *Tracker) Fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.processes[id]; ok {
		p.Status = StatusFailed
		p.Error = err
	}
}

// Progress returns a copy of one process, or nil when unknown
func (t *Tracker) Progress(id string) *Process {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.processes[id]
	if !ok {
		return nil
	}
	snapshot := *p
	return &snapshot
}

// ListProcesses returns copies of every tracked process
func (t *Tracker) ListProcesses() []*Process {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Process, 0, len(t.processes))
	for _, p := range t.processes {
		snapshot := *p
		out = append(out, &snapshot)
	}
	return out
}
