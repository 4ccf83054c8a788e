// Package filesystem implements the capacity provider of the destination
// volumes. It answers identity and free/total space queries for mounted
// filesystems and creates the directories of the migrated tree.
package filesystem

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

type osProvider interface {
	MkdirAll(path string, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Stat(path string, stat *unix.Stat_t) error
	Statfs(path string, buf *unix.Statfs_t) error
}

type diskStatProvider interface {
	GetDiskUsage(s storage) (DiskStats, error)
	GetDiskUsageFresh(s storage) (DiskStats, error)
}

// storage is anything that is located at a mounted filesystem path.
type storage interface {
	GetName() string
	GetFSPath() string
}

// Handler is the principal implementation for the filesystem services.
type Handler struct {
	osHandler       osProvider
	unixHandler     unixProvider
	diskStatHandler diskStatProvider
}

// NewHandler returns a pointer to a new filesystem [Handler]. The disk usage
// cache is refreshed in the background until the given context is cancelled.
func NewHandler(ctx context.Context, osHandler osProvider, unixHandler unixProvider) *Handler {
	return &Handler{
		osHandler:       osHandler,
		unixHandler:     unixHandler,
		diskStatHandler: NewDiskUsageCacher(ctx, unixHandler),
	}
}
