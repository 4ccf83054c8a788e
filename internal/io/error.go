package io

import "errors"

var (
	// ErrBufferAllocation is an error that occurs when the transfer buffers
	// cannot be set up, it aborts a migration as a whole.
	ErrBufferAllocation = errors.New("failed to allocate transfer buffers")

	// ErrVerificationFailed is an error that occurs when a destination file
	// does not match its source after the transfer. The source is kept.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrSourceChanged is an error that occurs when the source file delivers
	// less data than it reported when the transfer was started.
	ErrSourceChanged = errors.New("source file changed during transfer")

	// ErrNotRegular is an error that occurs when a source is not a regular
	// file and cannot be transferred with the copy engine.
	ErrNotRegular = errors.New("source is not a regular file")
)
