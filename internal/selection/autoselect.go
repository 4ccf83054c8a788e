package selection

import (
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

// pathContainer is anything that knows about already handled relative paths,
// such as the transfer ledger.
type pathContainer interface {
	Contains(relativePath string) bool
}

// AutoSelect greedily picks the files that fit into the given byte budget, in
// item order. Files that do not fit are passed over in favor of later (smaller)
// ones, files known to the given container are never picked. The ancestor
// directories of every picked file are picked along with it; the returned
// items keep their original order.
func AutoSelect(items []schema.WorkItem, budget uint64, skip pathContainer) []schema.WorkItem {
	picked := make(map[string]struct{})

	var cumulative uint64

	for _, item := range items {
		if item.IsDirectory {
			continue
		}

		if skip != nil && skip.Contains(item.RelativePath) {
			continue
		}

		if cumulative+item.Size > budget {
			continue
		}
		cumulative += item.Size

		picked[item.RelativePath] = struct{}{}

		for parent := filepath.Dir(item.RelativePath); parent != "." && parent != string(filepath.Separator); parent = filepath.Dir(parent) {
			picked[parent] = struct{}{}
		}
	}

	selected := []schema.WorkItem{}

	for _, item := range items {
		if _, ok := picked[item.RelativePath]; ok {
			selected = append(selected, item)
		}
	}

	return selected
}

// TotalSize returns the summed size of all file items.
func TotalSize(items []schema.WorkItem) uint64 {
	var total uint64

	for _, item := range items {
		if !item.IsDirectory {
			total += item.Size
		}
	}

	return total
}
