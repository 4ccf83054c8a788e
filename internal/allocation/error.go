package allocation

import (
	"errors"
)

var (
	// ErrNoDestinations is an error that is returned when an assignment is
	// requested without any destination volumes.
	ErrNoDestinations = errors.New("no destinations given")

	// ErrDuplicatePath is an error that is returned when the same relative
	// path occurs more than once among the work items.
	ErrDuplicatePath = errors.New("duplicate relative path")
)
