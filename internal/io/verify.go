package io

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

type verifyOsProvider interface {
	Open(name string) (*os.File, error)
}

// BlockVerifier compares two files by their sizes first and then block by
// block with sequential reads.
type BlockVerifier struct {
	osHandler verifyOsProvider
	blockSize int
}

// NewBlockVerifier returns a pointer to a new [BlockVerifier].
func NewBlockVerifier(osHandler verifyOsProvider, blockSize int) *BlockVerifier {
	if blockSize <= 0 {
		blockSize = DefaultVerifyBlockSize
	}

	return &BlockVerifier{
		osHandler: osHandler,
		blockSize: blockSize,
	}
}

// Verify returns nil if dst holds exactly the content of src and both are of
// the expected size. Any difference results in [ErrVerificationFailed]; the
// context is observed between two blocks.
func (v *BlockVerifier) Verify(ctx context.Context, src string, dst string, expectedSize uint64) error {
	srcFile, err := v.osHandler.Open(src)
	if err != nil {
		return fmt.Errorf("(io-verify) failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := v.osHandler.Open(dst)
	if err != nil {
		return fmt.Errorf("(io-verify) failed to open destination file: %w", err)
	}
	defer dstFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("(io-verify) failed to stat source file: %w", err)
	}

	dstInfo, err := dstFile.Stat()
	if err != nil {
		return fmt.Errorf("(io-verify) failed to stat destination file: %w", err)
	}

	if srcInfo.Size() != dstInfo.Size() || uint64(srcInfo.Size()) != expectedSize { //nolint:gosec
		return fmt.Errorf("(io-verify) %w: size %d (src) != %d (dst), expected %d",
			ErrVerificationFailed, srcInfo.Size(), dstInfo.Size(), expectedSize)
	}

	srcBuf := make([]byte, v.blockSize)
	dstBuf := make([]byte, v.blockSize)

	var offset int64

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("(io-verify) verification canceled: %w", context.Cause(ctx))
		}

		srcN, err := readBlock(srcFile, srcBuf)
		if err != nil {
			return fmt.Errorf("(io-verify) failed to read source file: %w", err)
		}

		dstN, err := readBlock(dstFile, dstBuf)
		if err != nil {
			return fmt.Errorf("(io-verify) failed to read destination file: %w", err)
		}

		if srcN != dstN || !bytes.Equal(srcBuf[:srcN], dstBuf[:dstN]) {
			return fmt.Errorf("(io-verify) %w: content differs in block at offset %d", ErrVerificationFailed, offset)
		}

		if srcN == 0 {
			return nil
		}

		offset += int64(srcN)
	}
}

// readBlock fills buf as far as the file allows, a short or empty block is
// only returned at the end of the file.
func readBlock(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, err //nolint:wrapcheck
	}

	return n, nil
}
