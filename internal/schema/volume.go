package schema

import (
	"fmt"
	"path/filepath"
)

// DestinationVolume is a distinct storage device or partition that a migration
// can write to. It is owned and refreshed by the caller, the core treats it as
// read-only input and never mutates it.
type DestinationVolume struct {
	// Serial is the volume serial number (filesystem identifier).
	Serial uint64

	// RootPath is the absolute path at which the volume is mounted (or the
	// directory that is to be treated as the volume's root).
	RootPath string

	// Label is a human-readable name for the volume, it can be empty.
	Label string

	// FreeBytes is the space that is available to unprivileged writers.
	FreeBytes uint64

	// TotalBytes is the total size of the volume.
	TotalBytes uint64
}

// ID returns the hex-formatted serial of the [DestinationVolume], as it is
// recorded in the transfer ledger.
func (v DestinationVolume) ID() string {
	return FormatSerial(v.Serial)
}

// GetName returns the label of a [DestinationVolume], falling back to the
// identifier when no label is known.
func (v DestinationVolume) GetName() string {
	if v.Label != "" {
		return v.Label
	}

	return v.ID()
}

// GetFSPath returns the root path of a [DestinationVolume].
func (v DestinationVolume) GetFSPath() string {
	return v.RootPath
}

// DestPath returns the absolute destination path for a relative path of a
// migration, recreating the source folder's base name below the volume root.
func (v DestinationVolume) DestPath(sourceFolderName string, relativePath string) string {
	return filepath.Join(v.RootPath, sourceFolderName, relativePath)
}

// FormatSerial formats a volume serial as upper-case hexadecimal, zero padded
// to at least eight digits.
func FormatSerial(serial uint64) string {
	return fmt.Sprintf("%08X", serial)
}
