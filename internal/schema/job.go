package schema

// Mode describes how a [MigrationJob] transfers its files.
type Mode int

const (
	// ModeCopy leaves the source files in place.
	ModeCopy Mode = iota

	// ModeMove removes the source files after a successful transfer.
	ModeMove
)

// String returns the textual representation of a [Mode].
func (m Mode) String() string {
	if m == ModeMove {
		return "move"
	}

	return "copy"
}

// ParseMode returns the [Mode] for a textual representation, ok is false when
// the text is not a known mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "copy", "":
		return ModeCopy, true
	case "move":
		return ModeMove, true
	default:
		return ModeCopy, false
	}
}

// Status is the state of a migration run.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
	StatusCompletedWithErrors
)

// String returns the textual representation of a [Status].
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusCompletedWithErrors:
		return "completed with errors"
	default:
		return "unknown"
	}
}

// IsTerminal returns whether a [Status] ends a run.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusCompletedWithErrors
}

// MigrationJob is a fully assigned unit of work. It is built once per run and
// is not modified afterwards, cancellation is requested through the context
// that the job is started with.
type MigrationJob struct {
	// Items are all directories and files in traversal order.
	Items []*JobItem

	// Destinations are the volumes that the item destination indexes refer to.
	Destinations []DestinationVolume

	// SourceFolderName is the base name of the source folder, which is
	// recreated below each destination root.
	SourceFolderName string

	// SourceFolder is the absolute source folder, stored in the ledger.
	SourceFolder string

	// LedgerPath is the location of the persisted transfer ledger.
	LedgerPath string

	Mode               Mode
	VerifyBeforeDelete bool

	// TotalBytes is the sum of all assigned file sizes.
	TotalBytes uint64
}

// Files returns the assigned file items of the [MigrationJob] in job order.
func (j *MigrationJob) Files() []*JobItem {
	files := make([]*JobItem, 0, len(j.Items))

	for _, item := range j.Items {
		if !item.IsDirectory && item.IsAssigned() {
			files = append(files, item)
		}
	}

	return files
}

// Directories returns the assigned directory items of the [MigrationJob] in
// job order.
func (j *MigrationJob) Directories() []*JobItem {
	dirs := []*JobItem{}

	for _, item := range j.Items {
		if item.IsDirectory && item.IsAssigned() {
			dirs = append(dirs, item)
		}
	}

	return dirs
}
