package io

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
)

const smallCopyBufferSize = 1024 * 1024

//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, context.Cause(cr.ctx)
	default:
		return cr.reader.Read(p)
	}
}

// progressWriter reports the running total of written bytes.
type progressWriter struct {
	writer   io.Writer
	written  uint64
	progress ProgressFunc
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	if n > 0 {
		pw.written += uint64(n)
		pw.progress(pw.written)
	}

	return n, err //nolint:wrapcheck
}

// smallCopy copies a file with one buffered stream. The reader observes the
// context, so a cancellation aborts the copy mid-transfer.
func (i *Handler) smallCopy(ctx context.Context, src string, dst string, progress ProgressFunc) error {
	var transferComplete bool

	srcFile, err := i.osHandler.Open(src)
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

	dstFile, err := i.osHandler.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to open destination file %s: %w", dst, err)
	}
	defer func() {
		if !transferComplete {
			dstFile.Close() //nolint:errcheck,gosec
			i.cleanFileAfterFailure(dst)
		}
	}()

	ctxReader := &contextReader{
		ctx:    ctx,
		reader: srcFile,
	}
	writer := &progressWriter{
		writer:   dstFile,
		progress: progress,
	}

	if _, err := io.CopyBuffer(writer, ctxReader, make([]byte, smallCopyBufferSize)); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transfer canceled: %w", err)
		}

		return fmt.Errorf("failed to copy file: %w", err)
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

// cleanFileAfterFailure removes a partially written destination file.
func (i *Handler) cleanFileAfterFailure(path string) {
	if err := i.osHandler.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failure removing destination file cleaning after failure (skipped)",
			"path", path,
			"err", err,
		)
	}
}
