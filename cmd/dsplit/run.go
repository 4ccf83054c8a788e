package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/horizonip/Disk-Migration-Tool/internal/allocation"
	"github.com/horizonip/Disk-Migration-Tool/internal/io"
	"github.com/horizonip/Disk-Migration-Tool/internal/migration"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/horizonip/Disk-Migration-Tool/internal/ui"
	"github.com/horizonip/Disk-Migration-Tool/internal/validation"
	"github.com/spf13/cobra"
)

const (
	exitCancelled  = 1
	exitWithErrors = 2

	uiEventBuffer = 256
)

// runOptions are the user choices for executing a [plan].
type runOptions struct {
	move   bool
	verify bool
	ui     bool
}

// runPlan executes a [plan] and reports its result.
func (app *App) runPlan(cmd *cobra.Command, p *plan, opts runOptions) error {
	mode := schema.ModeCopy
	if opts.move {
		mode = schema.ModeMove
	}

	job := validation.ValidateJob(p.assignment.Job(allocation.JobOptions{
		SourceFolder:       p.source,
		SourceFolderName:   p.sourceName,
		LedgerPath:         p.ledgerPath,
		Mode:               mode,
		VerifyBeforeDelete: opts.verify,
	}))

	if len(job.Files()) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to transfer.")

		return nil
	}

	ioHandler, err := io.NewHandler(app.osProvider, app.unixProvider, app.settings.IOOptions())
	if err != nil {
		return fmt.Errorf("(cmd-run) %w", err)
	}

	migrationHandler := migration.NewHandler(app.fsHandler, ioHandler, p.ledger)

	var result migration.Result
	if opts.ui {
		result, err = app.runWithUI(cmd, migrationHandler, job, p)
	} else {
		result, err = app.runWithLogs(cmd, migrationHandler, job)
	}

	if err != nil {
		return err
	}

	switch result.Status {
	case schema.StatusCancelled:
		app.SetExitCode(exitCancelled)
	case schema.StatusCompletedWithErrors:
		app.SetExitCode(exitWithErrors)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migration %s: %d transferred, %d failed, %s in %s\n",
		result.Status, result.Succeeded, result.Failed,
		humanize.IBytes(result.BytesDone), result.Duration.Round(time.Second))

	return nil
}

func (app *App) runWithLogs(cmd *cobra.Command, m *migration.Handler, job *schema.MigrationJob) (migration.Result, error) {
	if err := m.Start(cmd.Context(), job, migration.NewLogObserver()); err != nil {
		return migration.Result{}, fmt.Errorf("(cmd-run) %w", err)
	}

	return m.Wait(), nil
}

// runWithUI executes the job behind the terminal user interface, routing the
// logs into it. The terminal logging is restored when the interface exits,
// the job is then awaited regardless of how the interface was left.
func (app *App) runWithUI(cmd *cobra.Command, m *migration.Handler, job *schema.MigrationJob, p *plan) (migration.Result, error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	obs := migration.NewChannelObserver(uiEventBuffer)

	uiHandler := ui.NewHandler(cmd.Context(), cancel, ui.JobInfo{
		Source:       p.source,
		Mode:         job.Mode,
		Verify:       job.VerifyBeforeDelete,
		Files:        len(job.Files()),
		TotalBytes:   job.TotalBytes,
		Destinations: p.destinationNames(),
		Capacity:     p.destinationCapacity(app.fsHandler),
	}, obs.Events())

	app.logManager.AddHandler(uiHandlerName, newTerminalHandler(uiHandler.LogWriter, app.logLevel))
	app.logManager.RemoveHandler(terminalHandlerName)

	if err := m.Start(ctx, job, obs); err != nil {
		app.restoreTerminalLogging()

		return migration.Result{}, fmt.Errorf("(cmd-run) %w", err)
	}

	_, uiErr := uiHandler.Launch()
	app.restoreTerminalLogging()

	// Drain what the interface did not consume.
	go func() {
		for range obs.Events() { //nolint:revive
		}
	}()

	if uiErr != nil && cmd.Context().Err() == nil {
		slog.Error("UI failure: falling back to terminal.", "err", uiErr)
	}

	return m.Wait(), nil
}

func (app *App) restoreTerminalLogging() {
	app.logManager.AddHandler(terminalHandlerName, newTerminalHandler(os.Stdout, app.logLevel))
	app.logManager.RemoveHandler(uiHandlerName)
}

// printLedger prints the stored ledger of a source folder.
func (app *App) printLedger(cmd *cobra.Command, source string, showEntries bool) error {
	source, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("(cmd-ledger) %w", err)
	}

	l, location, err := app.openLedger(source)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ledger: %s\nSource: %s\nEntries: %d\n\n", location, l.Source(), l.Len())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd

	if showEntries {
		fmt.Fprintln(w, "DEST\tSIZE\tPATH")
		for _, entry := range l.Entries() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", entry.DestinationID, humanize.IBytes(entry.Size), entry.RelativePath)
		}
	} else {
		totals := l.Totals()
		ids := make([]string, 0, len(totals))
		for id := range totals {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		fmt.Fprintln(w, "DEST\tTRANSFERRED")
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%s\n", id, humanize.IBytes(totals[id]))
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("(cmd-ledger) %w", err)
	}

	return nil
}
