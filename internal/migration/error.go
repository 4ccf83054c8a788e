package migration

import "errors"

var (
	// ErrAlreadyRunning is an error that occurs when a migration is started
	// while another one is still running.
	ErrAlreadyRunning = errors.New("a migration is already running")

	// ErrNilJob is an error that occurs when a migration is started without
	// a job.
	ErrNilJob = errors.New("job is nil")

	// ErrInvalidDestination is an error that occurs when a job item refers to
	// a destination that is not part of the job.
	ErrInvalidDestination = errors.New("invalid destination index")
)
