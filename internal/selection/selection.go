// Package selection turns a source folder into the ordered list of work items
// that the assignment engine consumes. Within every directory level the
// subdirectories come first, then the files, each group ordered by name
// without regard to case. Every directory is emitted before its contents.
package selection

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

type osProvider interface {
	ReadDir(name string) ([]os.DirEntry, error)
	Stat(name string) (os.FileInfo, error)
}

// Handler is the principal implementation for the selection services.
type Handler struct {
	osHandler osProvider
}

// NewHandler returns a pointer to a new selection [Handler].
func NewHandler(osHandler osProvider) *Handler {
	return &Handler{
		osHandler: osHandler,
	}
}

// Scan walks the given source folder and returns a [schema.WorkItem] for
// every directory and regular file below it. Paths matching any of the
// doublestar exclude patterns (matched against the slash-separated relative
// path) are left out, an excluded directory takes its whole subtree with it.
// Unreadable subdirectories and irregular files are skipped with a warning.
func (h *Handler) Scan(ctx context.Context, root string, excludes []string) ([]schema.WorkItem, error) {
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return nil, fmt.Errorf("(selection-scan) %w: %q", ErrInvalidPattern, pattern)
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("(selection-scan) failed to get absolute path: %w", err)
	}

	info, err := h.osHandler.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("(selection-scan) failed to stat: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("(selection-scan) %w: %s", ErrNotDirectory, absRoot)
	}

	items := []schema.WorkItem{}

	if err := h.scanFolder(ctx, absRoot, "", excludes, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (h *Handler) scanFolder(ctx context.Context, path string, relPrefix string, excludes []string, items *[]schema.WorkItem) error {
	if ctx.Err() != nil {
		return fmt.Errorf("(selection-scan) %w", context.Cause(ctx))
	}

	entries, err := h.osHandler.ReadDir(path)
	if err != nil {
		if relPrefix == "" {
			return fmt.Errorf("(selection-scan) failed to readdir: %w", err)
		}
		slog.Warn("Skipped folder: failed to readdir", "path", path, "err", err)

		return nil
	}

	folders, files := []fs.DirEntry{}, []fs.DirEntry{}

	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, entry)
		} else {
			files = append(files, entry)
		}
	}

	sortEntries(folders)
	sortEntries(files)

	for _, entry := range folders {
		relPath := filepath.Join(relPrefix, entry.Name())
		if isExcluded(excludes, relPath, true) {
			continue
		}

		fullPath := filepath.Join(path, entry.Name())

		*items = append(*items, schema.WorkItem{
			SourcePath:   fullPath,
			RelativePath: relPath,
			IsDirectory:  true,
		})

		if err := h.scanFolder(ctx, fullPath, relPath, excludes, items); err != nil {
			return err
		}
	}

	for _, entry := range files {
		relPath := filepath.Join(relPrefix, entry.Name())
		if isExcluded(excludes, relPath, false) {
			continue
		}

		fullPath := filepath.Join(path, entry.Name())

		if !entry.Type().IsRegular() {
			slog.Warn("Skipped file: not a regular file", "path", fullPath, "type", entry.Type().String())

			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("Skipped file: failed to get info", "path", fullPath, "err", err)

			continue
		}

		*items = append(*items, schema.WorkItem{
			SourcePath:   fullPath,
			RelativePath: relPath,
			Size:         handleSize(info.Size()),
		})
	}

	return nil
}

func sortEntries(entries []fs.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name()), strings.ToLower(entries[j].Name())
		if a != b {
			return a < b
		}

		return entries[i].Name() < entries[j].Name()
	})
}

// isExcluded checks if a relative path matches any exclude pattern. Patterns
// with a trailing slash only apply to directories.
func isExcluded(excludes []string, relPath string, isDir bool) bool {
	slashPath := filepath.ToSlash(relPath)

	for _, pattern := range excludes {
		if strings.HasSuffix(pattern, "/") {
			if !isDir {
				continue
			}
			pattern = strings.TrimSuffix(pattern, "/")
		}

		if matched, _ := doublestar.Match(pattern, slashPath); matched {
			return true
		}
	}

	return false
}

// handleSize converts a int64 filesize to a uint64 filesize (with sizes < 0 becoming 0).
func handleSize(size int64) uint64 {
	if size < 0 {
		return 0
	}

	return uint64(size)
}
