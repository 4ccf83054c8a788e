// Package allocation implements the capacity-aware assignment of work items
// to destination volumes. The assignment is a deterministic greedy first-fit:
// files are visited in traversal order and each one goes to the first listed
// destination that still has room for it. Nothing is kept between calls.
package allocation

import (
	"fmt"
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

// ledgerProvider is anything that knows which relative paths were already
// transferred.
type ledgerProvider interface {
	Contains(relativePath string) bool
}

// Assignment is the ephemeral result of [Assign]. It is recomputed whenever
// the selection, the destinations or the ledger change and is never persisted.
type Assignment struct {
	items        []schema.WorkItem
	destinations []schema.DestinationVolume

	fileDest      map[string]int
	dirDests      map[string][]int
	assignedBytes []uint64
	assignedCount []int

	unassignedBytes uint64
	unassignedCount int
	skippedBytes    uint64
	skippedCount    int
}

// Assign maps every file of the given items onto the destinations. Files
// contained in the ledger are skipped, files that fit no destination's
// remaining space are left unassigned and only reported as an aggregate.
// Directories are scheduled on every destination that received at least one
// of their descendant files. The ledger may be nil.
func Assign(destinations []schema.DestinationVolume, items []schema.WorkItem, ledger ledgerProvider) (*Assignment, error) {
	if len(destinations) == 0 {
		return nil, ErrNoDestinations
	}

	a := &Assignment{
		items:         items,
		destinations:  destinations,
		fileDest:      make(map[string]int),
		dirDests:      make(map[string][]int),
		assignedBytes: make([]uint64, len(destinations)),
		assignedCount: make([]int, len(destinations)),
	}

	seen := make(map[string]struct{}, len(items))
	dirs := make(map[string]struct{})

	for _, item := range items {
		if _, dup := seen[item.RelativePath]; dup {
			return nil, fmt.Errorf("(alloc-assign) %w: %s", ErrDuplicatePath, item.RelativePath)
		}
		seen[item.RelativePath] = struct{}{}

		if item.IsDirectory {
			dirs[item.RelativePath] = struct{}{}
		}
	}

	remaining := make([]uint64, len(destinations))
	for i, d := range destinations {
		remaining[i] = d.FreeBytes
	}

	for _, item := range items {
		if item.IsDirectory {
			continue
		}

		if ledger != nil && ledger.Contains(item.RelativePath) {
			a.skippedCount++
			a.skippedBytes += item.Size

			continue
		}

		idx, ok := firstFit(remaining, item.Size)
		if !ok {
			a.unassignedCount++
			a.unassignedBytes += item.Size

			continue
		}

		remaining[idx] -= item.Size
		a.fileDest[item.RelativePath] = idx
		a.assignedBytes[idx] += item.Size
		a.assignedCount[idx]++

		a.scheduleParents(item.RelativePath, idx, dirs)
	}

	return a, nil
}

// firstFit returns the first destination with enough remaining space.
func firstFit(remaining []uint64, size uint64) (int, bool) {
	for i, free := range remaining {
		if size <= free {
			return i, true
		}
	}

	return 0, false
}

// scheduleParents adds a destination to all ancestor directory items of a
// relative path, keeping each directory's destinations in listed order.
func (a *Assignment) scheduleParents(relPath string, idx int, dirs map[string]struct{}) {
	for parent := filepath.Dir(relPath); parent != "." && parent != string(filepath.Separator); parent = filepath.Dir(parent) {
		if _, ok := dirs[parent]; !ok {
			continue
		}

		a.dirDests[parent] = insertSorted(a.dirDests[parent], idx)
	}
}

func insertSorted(s []int, v int) []int {
	for i, existing := range s {
		if existing == v {
			return s
		}
		if existing > v {
			s = append(s, 0)
			copy(s[i+1:], s[i:])
			s[i] = v

			return s
		}
	}

	return append(s, v)
}
