package io

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// chunk is a filled transfer buffer handed from the reader to the writer.
type chunk struct {
	buf []byte
	n   int
}

// fastCopy copies a file with two alternating buffers: while the writer
// drains one buffer, the reader fills the other. Every write is a multiple of
// [SectorSize] (the final chunk is zero padded) into a pre-extended file that
// is truncated to the exact source size at the end.
func (i *Handler) fastCopy(ctx context.Context, src string, dst string, progress ProgressFunc) error {
	i.Lock()
	defer i.Unlock()

	var transferComplete bool

	srcFile, err := i.openDirect(src, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, src)
	}

	size := srcInfo.Size()

	dstFile, err := i.openDirect(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to open destination file %s: %w", dst, err)
	}
	defer func() {
		if !transferComplete {
			dstFile.Close() //nolint:errcheck,gosec
			i.cleanFileAfterFailure(dst)
		}
	}()

	i.preallocate(dstFile, roundUp(size))

	if err := i.pipeline(ctx, srcFile, dstFile, size, progress); err != nil {
		return err
	}

	if err := dstFile.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate destination file: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync destination fs: %w", err)
	}

	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	transferComplete = true

	if err := i.copyMetadata(src, dst, srcInfo); err != nil {
		slog.Warn("Failure copying metadata (skipped)", "path", dst, "err", err)
	}

	return nil
}

// pipeline runs the reader and writer goroutines of the fast copy. The two
// buffers circulate through a free list and a single-slot handoff.
func (i *Handler) pipeline(ctx context.Context, srcFile io.Reader, dstFile io.Writer, size int64, progress ProgressFunc) error {
	g, gctx := errgroup.WithContext(ctx)

	free := make(chan []byte, len(i.buffers))
	for _, buf := range i.buffers {
		free <- buf
	}
	full := make(chan chunk, 1)

	g.Go(func() error {
		defer close(full)

		remaining := size

		for remaining > 0 {
			var buf []byte

			select {
			case <-gctx.Done():
				return context.Cause(gctx)
			case buf = <-free:
			}

			want := int(min(int64(len(buf)), remaining))

			n, err := readChunk(srcFile, buf, want)
			if err != nil {
				return err
			}
			remaining -= int64(n)

			select {
			case <-gctx.Done():
				return context.Cause(gctx)
			case full <- chunk{buf: buf, n: n}:
			}
		}

		return nil
	})

	g.Go(func() error {
		var written uint64

		for c := range full {
			if err := gctx.Err(); err != nil {
				return context.Cause(gctx)
			}

			padded := int(roundUp(int64(c.n)))
			clear(c.buf[c.n:padded])

			if _, err := dstFile.Write(c.buf[:padded]); err != nil {
				return fmt.Errorf("failed to write destination file: %w", err)
			}

			written += uint64(c.n) //nolint:gosec
			progress(written)

			free <- c.buf
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transfer canceled: %w", context.Cause(ctx))
		}

		return err //nolint:wrapcheck
	}

	return nil
}

// readChunk reads until want bytes are in buf. Reads are issued in sector
// multiples, so they stay valid for unbuffered descriptors.
func readChunk(r io.Reader, buf []byte, want int) (int, error) {
	limit := int(roundUp(int64(want)))
	filled := 0

	for filled < want {
		n, err := r.Read(buf[filled:limit])
		filled += n

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return filled, fmt.Errorf("failed to read source file: %w", err)
		}

		if n == 0 {
			break
		}
	}

	if filled < want {
		return filled, ErrSourceChanged
	}

	return min(filled, want), nil
}

// openDirect opens a file bypassing the page cache. Filesystems that do not
// support unbuffered access are opened with a regular descriptor instead.
func (i *Handler) openDirect(name string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := i.osHandler.OpenFile(name, flag|unix.O_DIRECT, perm)
	if err == nil {
		return f, nil
	}

	if !errors.Is(err, unix.EINVAL) {
		return nil, err //nolint:wrapcheck
	}

	return i.osHandler.OpenFile(name, flag, perm) //nolint:wrapcheck
}

// preallocate reserves the final size of a destination file up front.
func (i *Handler) preallocate(f *os.File, size int64) {
	if size <= 0 {
		return
	}

	if err := i.unixHandler.Fallocate(int(f.Fd()), 0, 0, size); err == nil { //nolint:gosec
		return
	}

	if err := f.Truncate(size); err != nil {
		slog.Debug("Failure pre-extending destination file (skipped)", "path", f.Name(), "err", err)
	}
}

// roundUp rounds a size up to the next multiple of [SectorSize].
func roundUp(size int64) int64 {
	return (size + SectorSize - 1) &^ (SectorSize - 1)
}

// alignedBuffer returns a buffer of the given size whose first byte is
// aligned to the given power of two.
func alignedBuffer(size int, align int) []byte {
	raw := make([]byte, size+align)

	offset := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align-1)); rem != 0 { //nolint:gosec
		offset = align - rem
	}

	return raw[offset : offset+size : offset+size]
}
