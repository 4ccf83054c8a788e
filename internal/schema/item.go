package schema

// WorkItem is one file or directory slated for migration. It is derived by the
// caller from a selection and is immutable for the duration of a run.
type WorkItem struct {
	// SourcePath is the absolute path of the element in the source location.
	SourcePath string

	// RelativePath is the path relative to the source folder, it is unique
	// among all the [WorkItem] of a job.
	RelativePath string

	// Size is the file size in bytes, it is zero for directories.
	Size uint64

	// IsDirectory describes if the [WorkItem] is a directory.
	IsDirectory bool
}

// JobItem is a [WorkItem] that has been assigned to its destination(s) as part
// of a [MigrationJob]. Files have at most one destination, directories have
// one destination for every volume that received a descendant file.
type JobItem struct {
	WorkItem

	// Destinations holds the indexes into [MigrationJob.Destinations].
	Destinations []int
}

// IsAssigned returns whether the [JobItem] has at least one destination.
func (j *JobItem) IsAssigned() bool {
	return len(j.Destinations) > 0
}
