// Package validation checks a migration layout and its job items before any
// file is touched.
package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

// ValidateLayout checks the source folder against the destination roots. A
// destination must neither be nor lie below the source, the source must not
// be the place where a destination would receive it, and the roots must be
// distinct.
func ValidateLayout(source string, roots []string) error {
	if !filepath.IsAbs(source) {
		return fmt.Errorf("(validation-layout) %w: %s", ErrRelativePath, source)
	}
	source = filepath.Clean(source)

	seen := make(map[string]struct{}, len(roots))

	for _, root := range roots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("(validation-layout) %w: %s", ErrRelativePath, root)
		}
		root = filepath.Clean(root)

		if _, ok := seen[root]; ok {
			return fmt.Errorf("(validation-layout) %w: %s", ErrDuplicateDestination, root)
		}
		seen[root] = struct{}{}

		if isWithin(source, root) {
			return fmt.Errorf("(validation-layout) %w: %s", ErrDestinationInSource, root)
		}

		if isWithin(filepath.Join(root, filepath.Base(source)), source) {
			return fmt.Errorf("(validation-layout) %w: %s", ErrSourceInDestination, root)
		}
	}

	return nil
}

// ValidateJob returns a copy of the job without the items that fail the
// pre-run validation; each of them is logged. The total size is recomputed.
func ValidateJob(job *schema.MigrationJob) *schema.MigrationJob {
	filtered := *job
	filtered.Items = make([]*schema.JobItem, 0, len(job.Items))
	filtered.TotalBytes = 0

	for _, item := range job.Items {
		if err := validateItem(job, item); err != nil {
			slog.Warn("Skipped job: failed pre-run validation for job", "err", err, "job", item.SourcePath)

			continue
		}

		filtered.Items = append(filtered.Items, item)

		if !item.IsDirectory {
			filtered.TotalBytes += item.Size
		}
	}

	return &filtered
}

// isWithin returns whether path is base itself or lies below it.
func isWithin(base string, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}

	return filepath.IsLocal(rel) || rel == "."
}
