package filesystem

import "fmt"

// EnsureDirectory creates a directory and all of its missing parents. An
// already existing directory is not an error, an existing non-directory is.
func (f *Handler) EnsureDirectory(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if err := f.osHandler.MkdirAll(path, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("(fs-ensuredir) failed to mkdir: %w", err)
	}

	return nil
}

// handleSize converts a int64 filesize to a uint64 filesize (with sizes < 0 becoming 0).
func handleSize(size int64) uint64 {
	if size < 0 {
		return 0
	}

	return uint64(size)
}
