package io

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// RemoveEmptyDirectories removes those of the given directories that are
// empty, the deepest ones first, so that parents emptied by the removal of
// their children are removed as well. Failures are skipped; the amount of
// removed directories is returned.
func (i *Handler) RemoveEmptyDirectories(dirs []string) int {
	sorted := append([]string(nil), dirs...)

	sort.SliceStable(sorted, func(a, b int) bool {
		return directoryDepth(sorted[a]) > directoryDepth(sorted[b])
	})

	removed := make(map[string]struct{})

	for _, dir := range sorted {
		if _, alreadyRemoved := removed[dir]; alreadyRemoved {
			continue
		}

		entries, err := i.osHandler.ReadDir(dir)
		if err != nil {
			slog.Debug("Failure establishing source directory emptiness (skipped)", "path", dir, "err", err)

			continue
		}

		if len(entries) > 0 {
			continue
		}

		if err := i.osHandler.Remove(dir); err != nil {
			slog.Debug("Failure removing empty source directory (skipped)", "path", dir, "err", err)

			continue
		}
		removed[dir] = struct{}{}
	}

	return len(removed)
}

func directoryDepth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}
