package filesystem

import (
	"fmt"
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"golang.org/x/sys/unix"
)

// Volume returns a [schema.DestinationVolume] for the filesystem that is
// mounted at (or contains) the given root path. The capacity is queried
// fresh from the operating system.
func (f *Handler) Volume(rootPath string, label string) (schema.DestinationVolume, error) {
	if rootPath == "" {
		return schema.DestinationVolume{}, ErrEmptyPath
	}

	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return schema.DestinationVolume{}, fmt.Errorf("(fs-volume) failed to get absolute path: %w", err)
	}

	info, err := f.osHandler.Stat(absPath)
	if err != nil {
		return schema.DestinationVolume{}, fmt.Errorf("(fs-volume) failed to stat: %w", err)
	}

	if !info.IsDir() {
		return schema.DestinationVolume{}, fmt.Errorf("(fs-volume) %w: %s", ErrNotDirectory, absPath)
	}

	vol := schema.DestinationVolume{
		RootPath: absPath,
		Label:    label,
	}

	stats, err := f.diskStatHandler.GetDiskUsageFresh(vol)
	if err != nil {
		return schema.DestinationVolume{}, fmt.Errorf("(fs-volume) %w", err)
	}

	vol.FreeBytes = stats.FreeSpace
	vol.TotalBytes = stats.TotalSize
	vol.Serial = stats.FSID

	if vol.Serial == 0 {
		var st unix.Stat_t
		if err := f.unixHandler.Stat(absPath, &st); err != nil {
			return schema.DestinationVolume{}, fmt.Errorf("(fs-volume) failed to stat device: %w", err)
		}
		vol.Serial = st.Dev
	}

	return vol, nil
}

// Refresh returns copies of the given volumes with fresh capacity figures.
// The input slice is never modified.
func (f *Handler) Refresh(volumes []schema.DestinationVolume) ([]schema.DestinationVolume, error) {
	fresh := make([]schema.DestinationVolume, 0, len(volumes))

	for _, v := range volumes {
		stats, err := f.diskStatHandler.GetDiskUsageFresh(v)
		if err != nil {
			return nil, fmt.Errorf("(fs-refresh) %s: %w", v.RootPath, err)
		}

		v.FreeBytes = stats.FreeSpace
		v.TotalBytes = stats.TotalSize
		fresh = append(fresh, v)
	}

	return fresh, nil
}

// GetDiskUsage gets the (possibly cached) [DiskStats] of a volume.
func (f *Handler) GetDiskUsage(v schema.DestinationVolume) (DiskStats, error) {
	data, err := f.diskStatHandler.GetDiskUsage(v)
	if err != nil {
		return data, fmt.Errorf("(fs-diskusage) %w", err)
	}

	return data, nil
}
