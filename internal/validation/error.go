package validation

import "errors"

var (
	// ErrRelativePath occurs when an absolute path is expected.
	ErrRelativePath = errors.New("path is not absolute")

	// ErrDuplicateDestination occurs when a destination root is given twice.
	ErrDuplicateDestination = errors.New("duplicate destination root")

	// ErrDestinationInSource occurs when a destination root is the source or
	// lies below it.
	ErrDestinationInSource = errors.New("destination lies within the source")

	// ErrSourceInDestination occurs when the source is where a destination
	// would receive it.
	ErrSourceInDestination = errors.New("source lies within its destination")

	// ErrNilItem occurs when a job holds a nil item.
	ErrNilItem = errors.New("item is nil")

	// ErrInvalidRelativePath occurs when a relative path is empty or escapes
	// the source folder.
	ErrInvalidRelativePath = errors.New("invalid relative path")

	// ErrSourceMismatch occurs when source path and relative path disagree.
	ErrSourceMismatch = errors.New("source path mismatches source folder")

	// ErrDirectoryWithSize occurs when a directory item carries a size.
	ErrDirectoryWithSize = errors.New("directory has a size")

	// ErrNotAssigned occurs when an item has no destination.
	ErrNotAssigned = errors.New("item has no destination")

	// ErrMultipleDestinations occurs when a file has more than one destination.
	ErrMultipleDestinations = errors.New("file has more than one destination")

	// ErrInvalidDestination occurs when a destination index is out of range.
	ErrInvalidDestination = errors.New("invalid destination index")

	// ErrDestinationMismatch occurs when a destination path escapes its root.
	ErrDestinationMismatch = errors.New("destination path mismatches destination root")
)
