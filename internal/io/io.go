// Package io implements the copy engine of a migration. Small files are copied
// with one buffered stream, large files with a double-buffered pipeline that
// bypasses the page cache where the filesystem allows it. Moves are tried as
// a rename first and fall back to copy, optional verification and deletion
// of the source.
package io

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// SectorSize is the alignment of all unbuffered transfers.
	SectorSize = 4096

	// DefaultFastCopyThreshold is the file size from which on the fast copy
	// pipeline is used instead of the buffered small-file copy.
	DefaultFastCopyThreshold = 4 * 1024 * 1024

	// DefaultChunkSize is the size of each of the two fast copy buffers.
	DefaultChunkSize = 16 * 1024 * 1024

	// DefaultVerifyBlockSize is the block size of the verification reads.
	DefaultVerifyBlockSize = 4 * 1024 * 1024
)

type osProvider interface {
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Chmod(path string, mode uint32) error
	Fallocate(fd int, mode uint32, off int64, size int64) error
	Stat(path string, stat *unix.Stat_t) error
	UtimesNano(path string, times []unix.Timespec) error
}

// Verifier compares a transferred destination file against its source.
type Verifier interface {
	Verify(ctx context.Context, src string, dst string, expectedSize uint64) error
}

// ProgressFunc receives the amount of bytes of the current file that have
// been transferred so far.
type ProgressFunc func(transferred uint64)

// Options are the tunables of a [Handler]. Zero values are replaced with the
// respective defaults.
type Options struct {
	FastCopyThreshold uint64
	ChunkSize         int
	VerifyBlockSize   int
}

// Handler is the principal implementation for the IO services.
type Handler struct {
	osHandler   osProvider
	unixHandler unixProvider

	// Verifier is used for the verification before deleting a moved
	// source. It defaults to a [BlockVerifier] on the same providers.
	Verifier Verifier

	fastCopyThreshold uint64

	sync.Mutex
	buffers [2][]byte
}

// NewHandler returns a pointer to a new IO [Handler]. The fast copy buffers
// are allocated once here; a buffer geometry that cannot be used for aligned
// transfers results in [ErrBufferAllocation].
func NewHandler(osHandler osProvider, unixHandler unixProvider, opts Options) (*Handler, error) {
	if opts.FastCopyThreshold == 0 {
		opts.FastCopyThreshold = DefaultFastCopyThreshold
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.VerifyBlockSize == 0 {
		opts.VerifyBlockSize = DefaultVerifyBlockSize
	}

	if opts.ChunkSize < 0 || opts.ChunkSize%SectorSize != 0 {
		return nil, fmt.Errorf("(io) %w: chunk size %d is not a positive multiple of %d", ErrBufferAllocation, opts.ChunkSize, SectorSize)
	}

	if opts.VerifyBlockSize < 0 {
		return nil, fmt.Errorf("(io) %w: verify block size %d", ErrBufferAllocation, opts.VerifyBlockSize)
	}

	h := &Handler{
		osHandler:         osHandler,
		unixHandler:       unixHandler,
		fastCopyThreshold: opts.FastCopyThreshold,
	}

	for k := range h.buffers {
		h.buffers[k] = alignedBuffer(opts.ChunkSize, SectorSize)
	}

	h.Verifier = &BlockVerifier{
		osHandler: osHandler,
		blockSize: opts.VerifyBlockSize,
	}

	return h, nil
}

// FastCopyThreshold returns the file size from which on the fast copy
// pipeline is used.
func (i *Handler) FastCopyThreshold() uint64 {
	return i.fastCopyThreshold
}

// CopyFile copies src to dst, choosing the transfer strategy by the expected
// size of the file. An existing dst is replaced. On any failure, including
// cancellation, the partial dst is removed again.
func (i *Handler) CopyFile(ctx context.Context, src string, dst string, size uint64, progress ProgressFunc) error {
	if progress == nil {
		progress = func(uint64) {}
	}

	if size >= i.fastCopyThreshold {
		if err := i.fastCopy(ctx, src, dst, progress); err != nil {
			return fmt.Errorf("(io-copy) %w", err)
		}

		return nil
	}

	if err := i.smallCopy(ctx, src, dst, progress); err != nil {
		return fmt.Errorf("(io-copy) %w", err)
	}

	return nil
}
