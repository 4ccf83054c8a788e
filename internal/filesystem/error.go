package filesystem

import "errors"

var (
	// ErrNotDirectory is an error that occurs when a path that is expected to
	// be a directory is in fact something else.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrEmptyPath is an error that occurs when an empty path is given to a
	// function that requires one.
	ErrEmptyPath = errors.New("path is empty")
)
