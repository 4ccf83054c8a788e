package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/horizonip/Disk-Migration-Tool/internal/allocation"
	"github.com/horizonip/Disk-Migration-Tool/internal/filesystem"
	"github.com/horizonip/Disk-Migration-Tool/internal/ledger"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/horizonip/Disk-Migration-Tool/internal/selection"
	"github.com/horizonip/Disk-Migration-Tool/internal/validation"
)

// planOptions are the user choices that shape a [plan].
type planOptions struct {
	excludes     []string
	budget       uint64
	skipExisting bool
}

// plan is a source folder assigned onto its destination volumes.
type plan struct {
	source     string
	sourceName string
	volumes    []schema.DestinationVolume
	ledgerPath string
	ledger     *ledger.Ledger
	items      []schema.WorkItem
	assignment *allocation.Assignment
}

// openLedger loads the ledger of a source folder, a missing one is empty.
func (app *App) openLedger(source string) (*ledger.Ledger, string, error) {
	location, err := ledger.Location(app.settings.LedgerDir, source)
	if err != nil {
		return nil, "", fmt.Errorf("(app-ledger) %w", err)
	}

	l := ledger.New(osfs.New("/"))

	found, err := l.Load(location)
	if err != nil {
		return nil, "", fmt.Errorf("(app-ledger) %w", err)
	}

	if found {
		slog.Info("Transfer ledger loaded:", "path", location, "entries", l.Len())
	} else {
		slog.Debug("No transfer ledger found, starting fresh", "path", location)
	}

	return l, location, nil
}

// buildPlan scans the source, loads its ledger and assigns the remaining
// files onto the destination roots.
func (app *App) buildPlan(ctx context.Context, source string, roots []string, opts planOptions) (*plan, error) {
	source, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("(app-plan) %w", err)
	}

	p := &plan{
		source:     source,
		sourceName: filepath.Base(source),
	}

	for _, root := range roots {
		vol, err := app.fsHandler.Volume(root, "")
		if err != nil {
			return nil, fmt.Errorf("(app-plan) destination %s: %w", root, err)
		}
		p.volumes = append(p.volumes, vol)
	}

	rootPaths := make([]string, 0, len(p.volumes))
	for _, vol := range p.volumes {
		rootPaths = append(rootPaths, vol.RootPath)
	}

	if err := validation.ValidateLayout(source, rootPaths); err != nil {
		return nil, fmt.Errorf("(app-plan) %w", err)
	}

	p.ledger, p.ledgerPath, err = app.openLedger(source)
	if err != nil {
		return nil, fmt.Errorf("(app-plan) %w", err)
	}

	excludes := append(append([]string{}, app.settings.Excludes...), opts.excludes...)

	p.items, err = app.selectionHandler.Scan(ctx, source, excludes)
	if err != nil {
		return nil, fmt.Errorf("(app-plan) %w", err)
	}

	// Scanning can take long, the destinations may have changed meanwhile.
	p.volumes, err = app.fsHandler.Refresh(p.volumes)
	if err != nil {
		return nil, fmt.Errorf("(app-plan) %w", err)
	}

	skip := selection.AnyOf{p.ledger}

	if opts.skipExisting {
		for _, vol := range p.volumes {
			existing, err := app.selectionHandler.Index(ctx, vol.DestPath(p.sourceName, ""))
			if err != nil {
				return nil, fmt.Errorf("(app-plan) %w", err)
			}
			slog.Debug("Indexed existing destination files:", "dest", vol.GetName(), "files", len(existing))
			skip = append(skip, existing)
		}
	}

	if opts.budget > 0 {
		p.items = selection.AutoSelect(p.items, opts.budget, skip)
		slog.Info("Auto-selected files within budget:",
			"budget", humanize.IBytes(opts.budget),
			"selected", humanize.IBytes(selection.TotalSize(p.items)),
		)
	}

	p.assignment, err = allocation.Assign(p.volumes, p.items, skip)
	if err != nil {
		return nil, fmt.Errorf("(app-plan) %w", err)
	}

	if n := p.assignment.UnassignedCount(); n > 0 {
		slog.Warn("Not all files fit onto the destinations:",
			"files", n,
			"size", humanize.IBytes(p.assignment.UnassignedBytes()),
		)
	}

	return p, nil
}

// destinationNames returns the display names of the plan's volumes.
func (p *plan) destinationNames() []string {
	names := make([]string, 0, len(p.volumes))
	for _, vol := range p.volumes {
		names = append(names, fmt.Sprintf("%s (%s)", vol.RootPath, vol.ID()))
	}

	return names
}

// destinationCapacity returns a function describing the current free space
// of the plan's volumes. The figures come from the periodically updated disk
// usage cache.
func (p *plan) destinationCapacity(fsHandler *filesystem.Handler) func() []string {
	return func() []string {
		lines := make([]string, 0, len(p.volumes))

		for _, vol := range p.volumes {
			stats, err := fsHandler.GetDiskUsage(vol)
			if err != nil {
				lines = append(lines, fmt.Sprintf("%s (%s, free unknown)", vol.RootPath, vol.ID()))

				continue
			}

			lines = append(lines, fmt.Sprintf("%s (%s, %s free)", vol.RootPath, vol.ID(), humanize.IBytes(stats.FreeSpace)))
		}

		return lines
	}
}
