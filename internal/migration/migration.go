// Package migration executes a planned [schema.MigrationJob] on a single
// worker goroutine, reporting to an [Observer] and checkpointing the ledger.
package migration

import (
	"context"
	"sync"
	"time"

	"github.com/horizonip/Disk-Migration-Tool/internal/io"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

const (
	// ProgressInterval is the minimum time between two progress notifications.
	ProgressInterval = 50 * time.Millisecond

	// FileInterval is the minimum time between two file name notifications.
	FileInterval = 80 * time.Millisecond

	// CheckpointEvery is the amount of successful items after which the ledger
	// is saved during a run.
	CheckpointEvery = 10
)

type fsProvider interface {
	EnsureDirectory(path string) error
}

type ioProvider interface {
	CopyFile(ctx context.Context, src string, dst string, size uint64, progress io.ProgressFunc) error
	MoveFile(ctx context.Context, src string, dst string, size uint64, opts io.MoveOptions) (io.MoveResult, error)
	RemoveEmptyDirectories(dirs []string) int
}

type ledgerProvider interface {
	AddEntry(relativePath string, destinationID string, size uint64)
	SetSource(folder string)
	Save(location string) error
}

// Handler is the migration orchestrator. It runs at most one job at a time.
type Handler struct {
	sync.Mutex
	fsHandler     fsProvider
	ioHandler     ioProvider
	ledgerHandler ledgerProvider
	now           func() time.Time

	status schema.Status
	result Result
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHandler returns a pointer to a new migration [Handler]. The ledger is
// expected to be loaded already, new entries are added to it while running.
func NewHandler(fsHandler fsProvider, ioHandler ioProvider, ledgerHandler ledgerProvider) *Handler {
	done := make(chan struct{})
	close(done)

	return &Handler{
		fsHandler:     fsHandler,
		ioHandler:     ioHandler,
		ledgerHandler: ledgerHandler,
		now:           time.Now,
		status:        schema.StatusIdle,
		done:          done,
	}
}

// Start launches the job on a worker goroutine and returns immediately.
// The run ends when all items are processed, when [Handler.Cancel] is called
// or when the given context is cancelled.
func (m *Handler) Start(ctx context.Context, job *schema.MigrationJob, observer Observer) error {
	if job == nil {
		return ErrNilJob
	}

	m.Lock()
	defer m.Unlock()

	if m.status == schema.StatusRunning {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)

	m.status = schema.StatusRunning
	m.result = Result{Status: schema.StatusRunning}
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(runCtx, job, observer, m.done)

	return nil
}

// Cancel requests the running job to stop. The file in flight is abandoned
// and its partial destination removed. It is a no-op when nothing runs.
func (m *Handler) Cancel() {
	m.Lock()
	defer m.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
}

// Wait blocks until the current run has finished and returns its result.
// It must not be called from within [Observer.OnComplete].
func (m *Handler) Wait() Result {
	m.Lock()
	done := m.done
	m.Unlock()

	<-done

	m.Lock()
	defer m.Unlock()

	return m.result
}

// Status returns the status of the current or last run.
func (m *Handler) Status() schema.Status {
	m.Lock()
	defer m.Unlock()

	return m.status
}

// IsRunning returns if a job is currently running.
func (m *Handler) IsRunning() bool {
	return m.Status() == schema.StatusRunning
}

func (m *Handler) finish(result Result) {
	m.Lock()
	defer m.Unlock()

	m.status = result.Status
	m.result = result

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
