package io

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// MoveOptions control a [Handler.MoveFile].
type MoveOptions struct {
	// Verify enables the comparison of source and destination before the
	// source of a copied (not renamed) file is deleted.
	Verify bool

	// Progress receives the transferred bytes of the file.
	Progress ProgressFunc

	// OnVerify is called right before a verification starts.
	OnVerify func()
}

// MoveResult describes how a [Handler.MoveFile] was carried out.
type MoveResult struct {
	Renamed  bool
	Verified bool
}

// MoveFile moves src to dst. A rename is attempted first, which succeeds on
// the same volume and needs no verification. Otherwise the file is copied
// with the size-selected strategy, optionally verified, and only then is the
// source deleted. A failed verification removes the unverified destination
// copy, keeps the source and returns [ErrVerificationFailed].
func (i *Handler) MoveFile(ctx context.Context, src string, dst string, size uint64, opts MoveOptions) (MoveResult, error) {
	var result MoveResult

	if opts.Progress == nil {
		opts.Progress = func(uint64) {}
	}

	err := i.osHandler.Rename(src, dst)
	if err == nil {
		result.Renamed = true
		opts.Progress(size)

		return result, nil
	}
	slog.Debug("Rename not possible, falling back to copy", "path", src, "err", err)

	if err := i.CopyFile(ctx, src, dst, size, opts.Progress); err != nil {
		return result, fmt.Errorf("(io-move) %w", err)
	}

	if ctx.Err() != nil {
		i.cleanFileAfterFailure(dst)

		return result, fmt.Errorf("(io-move) transfer canceled: %w", context.Cause(ctx))
	}

	if opts.Verify {
		if opts.OnVerify != nil {
			opts.OnVerify()
		}

		if err := i.Verifier.Verify(ctx, src, dst, size); err != nil {
			i.cleanFileAfterFailure(dst)

			if errors.Is(err, ErrVerificationFailed) {
				return result, fmt.Errorf("(io-move) source kept: %w", err)
			}

			return result, fmt.Errorf("(io-move) failed to verify: %w", err)
		}
		result.Verified = true
	}

	if err := i.osHandler.Remove(src); err != nil {
		return result, fmt.Errorf("(io-move) failed to remove src after move: %w", err)
	}

	return result, nil
}
