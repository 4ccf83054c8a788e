package configuration

import "errors"

var (
	// ErrInvalidValue is an error that occurs when a setting holds a value
	// that cannot be parsed into its type.
	ErrInvalidValue = errors.New("invalid setting value")

	// ErrConfigNotFound is an error that occurs when an explicitly requested
	// settings file does not exist.
	ErrConfigNotFound = errors.New("settings file not found")
)
