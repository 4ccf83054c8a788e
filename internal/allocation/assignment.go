package allocation

import (
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

// JobOptions are the run parameters of a [schema.MigrationJob] that are not
// derived from the [Assignment] itself.
type JobOptions struct {
	SourceFolder       string
	SourceFolderName   string
	LedgerPath         string
	Mode               schema.Mode
	VerifyBeforeDelete bool
}

// Destination returns the destination index of a file.
func (a *Assignment) Destination(relativePath string) (int, bool) {
	idx, ok := a.fileDest[relativePath]

	return idx, ok
}

// DirectoryDestinations returns the destination indexes of a directory.
func (a *Assignment) DirectoryDestinations(relativePath string) []int {
	return append([]int(nil), a.dirDests[relativePath]...)
}

// AssignedBytes returns the total size of the files assigned to a destination.
func (a *Assignment) AssignedBytes(idx int) uint64 {
	if idx < 0 || idx >= len(a.assignedBytes) {
		return 0
	}

	return a.assignedBytes[idx]
}

// AssignedCount returns the amount of files assigned to a destination.
func (a *Assignment) AssignedCount(idx int) int {
	if idx < 0 || idx >= len(a.assignedCount) {
		return 0
	}

	return a.assignedCount[idx]
}

// TotalBytes returns the total size of all assigned files.
func (a *Assignment) TotalBytes() uint64 {
	var total uint64
	for _, b := range a.assignedBytes {
		total += b
	}

	return total
}

// UnassignedBytes returns the total size of the files that fit nowhere.
func (a *Assignment) UnassignedBytes() uint64 {
	return a.unassignedBytes
}

// UnassignedCount returns the amount of files that fit nowhere.
func (a *Assignment) UnassignedCount() int {
	return a.unassignedCount
}

// SkippedBytes returns the total size of the files skipped as already done.
func (a *Assignment) SkippedBytes() uint64 {
	return a.skippedBytes
}

// SkippedCount returns the amount of files skipped as already done.
func (a *Assignment) SkippedCount() int {
	return a.skippedCount
}

// Destinations returns the destinations the assignment was computed for.
func (a *Assignment) Destinations() []schema.DestinationVolume {
	return append([]schema.DestinationVolume(nil), a.destinations...)
}

// Job builds the [schema.MigrationJob] for the assignment. Only items with at
// least one destination are part of the job, in their traversal order.
func (a *Assignment) Job(opts JobOptions) *schema.MigrationJob {
	job := &schema.MigrationJob{
		Items:              []*schema.JobItem{},
		Destinations:       a.Destinations(),
		SourceFolder:       opts.SourceFolder,
		SourceFolderName:   opts.SourceFolderName,
		LedgerPath:         opts.LedgerPath,
		Mode:               opts.Mode,
		VerifyBeforeDelete: opts.VerifyBeforeDelete,
	}

	for _, item := range a.items {
		var dests []int

		if item.IsDirectory {
			dests = a.DirectoryDestinations(item.RelativePath)
		} else if idx, ok := a.fileDest[item.RelativePath]; ok {
			dests = []int{idx}
		}

		if len(dests) == 0 {
			continue
		}

		job.Items = append(job.Items, &schema.JobItem{
			WorkItem:     item,
			Destinations: dests,
		})

		if !item.IsDirectory {
			job.TotalBytes += item.Size
		}
	}

	return job
}
