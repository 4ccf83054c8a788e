package validation

import (
	"fmt"
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

func validateItem(job *schema.MigrationJob, item *schema.JobItem) error {
	if item == nil {
		return ErrNilItem
	}

	if err := validatePaths(job, item); err != nil {
		return err
	}

	if err := validateDestinations(job, item); err != nil {
		return err
	}

	return nil
}

func validatePaths(job *schema.MigrationJob, item *schema.JobItem) error {
	if item.SourcePath == "" || !filepath.IsAbs(item.SourcePath) {
		return fmt.Errorf("(validation-item) %w: %q", ErrRelativePath, item.SourcePath)
	}

	if item.RelativePath == "" || !filepath.IsLocal(item.RelativePath) {
		return fmt.Errorf("(validation-item) %w: %q", ErrInvalidRelativePath, item.RelativePath)
	}

	if filepath.Join(job.SourceFolder, item.RelativePath) != filepath.Clean(item.SourcePath) {
		return fmt.Errorf("(validation-item) %w: %s", ErrSourceMismatch, item.SourcePath)
	}

	if item.IsDirectory && item.Size != 0 {
		return fmt.Errorf("(validation-item) %w: %s", ErrDirectoryWithSize, item.SourcePath)
	}

	return nil
}

func validateDestinations(job *schema.MigrationJob, item *schema.JobItem) error {
	if !item.IsAssigned() {
		return ErrNotAssigned
	}

	if !item.IsDirectory && len(item.Destinations) != 1 {
		return fmt.Errorf("(validation-item) %w: %d destinations", ErrMultipleDestinations, len(item.Destinations))
	}

	for _, idx := range item.Destinations {
		if idx < 0 || idx >= len(job.Destinations) {
			return fmt.Errorf("(validation-item) %w: %d", ErrInvalidDestination, idx)
		}

		dest := job.Destinations[idx]
		if !filepath.IsAbs(dest.RootPath) {
			return fmt.Errorf("(validation-item) %w: %q", ErrRelativePath, dest.RootPath)
		}

		destPath := dest.DestPath(job.SourceFolderName, item.RelativePath)
		if !isWithin(dest.RootPath, destPath) || destPath == filepath.Clean(dest.RootPath) {
			return fmt.Errorf("(validation-item) %w: %s", ErrDestinationMismatch, destPath)
		}
	}

	return nil
}
