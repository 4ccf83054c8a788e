package selection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// PathSet is a set of relative paths.
type PathSet map[string]struct{}

// Contains returns whether the relative path is a member of the [PathSet].
func (s PathSet) Contains(relativePath string) bool {
	_, ok := s[relativePath]

	return ok
}

// AnyOf combines several path containers into one, a path is contained when
// any of them contains it.
type AnyOf []pathContainer

// Contains returns whether any of the containers contains the relative path.
func (a AnyOf) Contains(relativePath string) bool {
	for _, c := range a {
		if c != nil && c.Contains(relativePath) {
			return true
		}
	}

	return false
}

// Index walks an existing destination folder and returns the relative paths
// of all regular files below it. A missing folder yields an empty set.
func (h *Handler) Index(ctx context.Context, root string) (PathSet, error) {
	set := make(PathSet)

	if _, err := h.osHandler.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return set, nil
		}

		return nil, fmt.Errorf("(selection-index) failed to stat: %w", err)
	}

	err := h.indexFolder(ctx, root, "", set)
	if err != nil {
		return nil, err
	}

	return set, nil
}

func (h *Handler) indexFolder(ctx context.Context, path string, relPrefix string, set PathSet) error {
	if ctx.Err() != nil {
		return fmt.Errorf("(selection-index) %w", context.Cause(ctx))
	}

	entries, err := h.osHandler.ReadDir(path)
	if err != nil {
		return fmt.Errorf("(selection-index) failed to readdir: %w", err)
	}

	for _, entry := range entries {
		relPath := filepath.Join(relPrefix, entry.Name())

		switch {
		case entry.IsDir():
			if err := h.indexFolder(ctx, filepath.Join(path, entry.Name()), relPath, set); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			set[relPath] = struct{}{}
		}
	}

	return nil
}
