package schema

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS is an implementation wrapping operating system functions.
type OS struct{}

// Remove wraps around [os.Remove].
func (*OS) Remove(name string) error {
	return os.Remove(name)
}

// ReadDir wraps around [os.ReadDir].
func (*OS) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// Open wraps around [os.Open].
func (*OS) Open(name string) (*os.File, error) {
	return os.Open(name)
}

// OpenFile wraps around [os.OpenFile].
func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat wraps around [os.Stat].
func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Rename wraps around [os.Rename].
func (*OS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// MkdirAll wraps around [os.MkdirAll].
func (*OS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Unix is an implementation wrapping Unix operating system functions.
type Unix struct{}

// Statfs wraps around [unix.Statfs].
func (*Unix) Statfs(path string, buf *unix.Statfs_t) error {
	return unix.Statfs(path, buf)
}

// Fallocate wraps around [unix.Fallocate].
func (*Unix) Fallocate(fd int, mode uint32, off int64, size int64) error {
	return unix.Fallocate(fd, mode, off, size)
}

// Chmod wraps around [unix.Chmod].
func (*Unix) Chmod(path string, mode uint32) error {
	return unix.Chmod(path, mode)
}

// UtimesNano wraps around [unix.UtimesNano].
func (*Unix) UtimesNano(path string, times []unix.Timespec) error {
	return unix.UtimesNano(path, times)
}

// Stat wraps around [unix.Stat].
func (*Unix) Stat(path string, stat *unix.Stat_t) error {
	return unix.Stat(path, stat)
}
