package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/io"
	"github.com/horizonip/Disk-Migration-Tool/internal/queue"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

// runState is owned by the worker goroutine of a single run.
type runState struct {
	job      *schema.MigrationJob
	observer Observer

	files     *queue.GenericQueue[*schema.JobItem]
	progress  *progressReporter
	fileNames *throttle

	lastParent string
	sinceSave  int
	hadError   bool
}

func (m *Handler) run(ctx context.Context, job *schema.MigrationJob, observer Observer, done chan struct{}) {
	defer close(done)

	start := m.now()

	state := &runState{
		job:      job,
		observer: observer,
		files: queue.NewGenericQueue(func(item *schema.JobItem) uint64 {
			return item.Size
		}),
		progress: &progressReporter{
			total:    job.TotalBytes,
			last:     -1,
			throttle: newThrottle(ProgressInterval, m.now),
			post:     observer.OnProgress,
		},
		fileNames: newThrottle(FileInterval, m.now),
	}

	slog.Info("Migration started:",
		"source", job.SourceFolder,
		"mode", job.Mode.String(),
		"files", len(job.Files()),
		"verify", job.VerifyBeforeDelete,
	)

	m.ledgerHandler.SetSource(job.SourceFolder)

	if err := m.createDirectories(ctx, state); err != nil {
		slog.Warn("Directory pass interrupted:", "err", err)
	}

	if err := m.transferFiles(ctx, state); err != nil {
		slog.Warn("File pass interrupted:", "err", err)
	}

	cancelled := ctx.Err() != nil
	if cancelled && state.files.HasRemainingItems() {
		slog.Info("Migration cancelled before all files were processed")
	}

	if job.Mode == schema.ModeMove && !cancelled {
		m.removeSourceDirectories(job)
	}

	if err := m.ledgerHandler.Save(job.LedgerPath); err != nil {
		slog.Error("Failed to save transfer ledger:", "path", job.LedgerPath, "err", err)
		observer.OnError(fmt.Sprintf("Failed to save transfer ledger: %v", err))
		state.hadError = true
	}

	stats := state.files.Progress()

	result := Result{
		Succeeded: stats.SuccessItems,
		Failed:    stats.FailedItems,
		BytesDone: stats.SuccessBytes,
		Duration:  m.now().Sub(start),
	}

	switch {
	case cancelled:
		result.Status = schema.StatusCancelled
	case state.hadError:
		result.Status = schema.StatusCompletedWithErrors
	default:
		result.Status = schema.StatusCompleted
	}

	m.finish(result)
	observer.OnComplete(result)
}

// createDirectories creates every assigned directory on each of its
// destinations, in job order so that parents come before their children.
func (m *Handler) createDirectories(ctx context.Context, state *runState) error {
	job := state.job
	tasker := queue.NewTaskManager()

	for _, item := range job.Directories() {
		for _, idx := range item.Destinations {
			if idx < 0 || idx >= len(job.Destinations) {
				slog.Warn("Skipped directory: invalid destination", "path", item.SourcePath, "index", idx)

				continue
			}

			dstPath := job.Destinations[idx].DestPath(job.SourceFolderName, item.RelativePath)

			tasker.Add(func() error {
				if err := m.fsHandler.EnsureDirectory(dstPath); err != nil {
					slog.Warn("Failed to create directory:", "path", dstPath, "err", err)
					state.observer.OnError(fmt.Sprintf("Failed to create directory: %s: %v", dstPath, err))
					state.hadError = true

					return err
				}

				return nil
			})
		}
	}

	failed, err := tasker.Launch(ctx)
	if failed > 0 {
		slog.Warn("Some directories could not be created:", "failed", failed)
	}

	if err != nil {
		return fmt.Errorf("(migration-dirs) %w", err)
	}

	return nil
}

func (m *Handler) transferFiles(ctx context.Context, state *runState) error {
	state.files.Enqueue(state.job.Files()...)

	if err := state.files.DequeueAndProcess(ctx, func(item *schema.JobItem) queue.Decision {
		return m.processFile(ctx, state, item)
	}); err != nil {
		return fmt.Errorf("(migration-files) %w", err)
	}

	return nil
}

func (m *Handler) processFile(ctx context.Context, state *runState, item *schema.JobItem) queue.Decision {
	job := state.job

	idx := item.Destinations[0]
	if idx < 0 || idx >= len(job.Destinations) {
		return m.failItem(ctx, state, item, ErrInvalidDestination)
	}

	dest := job.Destinations[idx]
	dstPath := dest.DestPath(job.SourceFolderName, item.RelativePath)

	if parent := filepath.Dir(dstPath); parent != state.lastParent {
		if err := m.fsHandler.EnsureDirectory(parent); err != nil {
			return m.failItem(ctx, state, item, err)
		}
		state.lastParent = parent
	}

	if state.fileNames.allow() {
		state.observer.OnFile(item.RelativePath)
	}

	base := state.files.Progress().SuccessBytes
	progress := func(transferred uint64) {
		state.progress.update(base + min(transferred, item.Size))
	}

	var err error

	switch job.Mode {
	case schema.ModeMove:
		_, err = m.ioHandler.MoveFile(ctx, item.SourcePath, dstPath, item.Size, io.MoveOptions{
			Verify:   job.VerifyBeforeDelete,
			Progress: progress,
			OnVerify: func() {
				state.observer.OnFile("Verifying: " + item.RelativePath)
			},
		})

	default:
		err = m.ioHandler.CopyFile(ctx, item.SourcePath, dstPath, item.Size, progress)
	}

	if err != nil {
		return m.failItem(ctx, state, item, err)
	}

	state.progress.update(base + item.Size)

	m.ledgerHandler.AddEntry(item.RelativePath, dest.ID(), item.Size)

	state.sinceSave++
	if state.sinceSave >= CheckpointEvery {
		state.sinceSave = 0

		if err := m.ledgerHandler.Save(job.LedgerPath); err != nil {
			slog.Warn("Failed to checkpoint transfer ledger:", "path", job.LedgerPath, "err", err)
		}
	}

	slog.Info("Processed:", "path", dstPath, "job", item.SourcePath)

	return queue.DecisionSuccess
}

// failItem reports a failed item and returns its [queue.Decision]. Failures
// caused by a cancellation are abandoned, so neither counted nor reported.
func (m *Handler) failItem(ctx context.Context, state *runState, item *schema.JobItem, err error) queue.Decision {
	if ctx.Err() != nil {
		slog.Info("Abandoned job: migration was cancelled", "job", item.SourcePath)

		return queue.DecisionAbandoned
	}

	state.hadError = true

	slog.Warn("Skipped job: failure during processing", "job", item.SourcePath, "err", err)

	if errors.Is(err, io.ErrVerificationFailed) {
		state.observer.OnError("Verify FAILED (source kept): " + item.RelativePath)
	} else {
		state.observer.OnError(fmt.Sprintf("Error processing: %s: %v", item.RelativePath, err))
	}

	return queue.DecisionFailed
}

func (m *Handler) removeSourceDirectories(job *schema.MigrationJob) {
	dirs := job.Directories()

	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		paths = append(paths, dir.SourcePath)
	}

	removed := m.ioHandler.RemoveEmptyDirectories(paths)
	slog.Debug("Removed emptied source directories:", "count", removed)
}
