package io

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// copyMetadata carries the permission bits and the access and modification
// times of the source over to the destination. Linux offers no way to set a
// creation time, so that one is left to the destination filesystem.
func (i *Handler) copyMetadata(src string, dst string, srcInfo os.FileInfo) error {
	if err := i.unixHandler.Chmod(dst, uint32(srcInfo.Mode().Perm())); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	var st unix.Stat_t
	if err := i.unixHandler.Stat(src, &st); err != nil {
		return fmt.Errorf("failed to stat source timestamps: %w", err)
	}

	ts := []unix.Timespec{st.Atim, st.Mtim}
	if err := i.unixHandler.UtimesNano(dst, ts); err != nil {
		return fmt.Errorf("failed to set timestamps: %w", err)
	}

	return nil
}
