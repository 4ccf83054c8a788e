package selection

import "errors"

var (
	// ErrInvalidPattern is an error that occurs when an exclude pattern is
	// not a valid doublestar pattern.
	ErrInvalidPattern = errors.New("invalid exclude pattern")

	// ErrNotDirectory is an error that occurs when the source to scan is not
	// a directory.
	ErrNotDirectory = errors.New("source is not a directory")
)
