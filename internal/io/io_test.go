package io

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// crossDeviceOS behaves like the real OS, except that renames always fail as
// if source and destination were on different volumes.
type crossDeviceOS struct {
	schema.OS
}

func (*crossDeviceOS) Rename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
}

func newTestHandler(t *testing.T, osHandler osProvider, opts Options) *Handler {
	t.Helper()

	h, err := NewHandler(osHandler, &schema.Unix{}, opts)
	require.NoError(t, err)

	return h
}

func randomFile(t *testing.T, path string, size int, perm os.FileMode) []byte {
	t.Helper()

	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, data, perm))
	require.NoError(t, os.Chmod(path, perm))

	return data
}

func TestNewHandler_InvalidGeometry_Fail(t *testing.T) {
	t.Parallel()

	for _, chunk := range []int{-4096, 1000, 4097} {
		_, err := NewHandler(&schema.OS{}, &schema.Unix{}, Options{ChunkSize: chunk})
		require.ErrorIs(t, err, ErrBufferAllocation, "chunk size %d", chunk)
	}
}

func TestNewHandler_Defaults(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &schema.OS{}, Options{})

	assert.Equal(t, uint64(DefaultFastCopyThreshold), h.FastCopyThreshold())
	for _, buf := range h.buffers {
		assert.Len(t, buf, DefaultChunkSize)
	}
}

func TestAlignedBuffer_Aligned(t *testing.T) {
	t.Parallel()

	for range 8 {
		buf := alignedBuffer(SectorSize*3, SectorSize)
		require.Len(t, buf, SectorSize*3)
		assert.Zero(t, uintptr(unsafe.Pointer(&buf[0]))%SectorSize)
	}
}

func TestRoundUp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), roundUp(0))
	assert.Equal(t, int64(4096), roundUp(1))
	assert.Equal(t, int64(4096), roundUp(4096))
	assert.Equal(t, int64(8192), roundUp(4097))
}

func TestCopyFile_Small_Success(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	data := randomFile(t, src, 300*1024, 0o640)

	mtime := time.Date(2020, 5, 17, 8, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	h := newTestHandler(t, &schema.OS{}, Options{})

	var last uint64
	require.NoError(t, h.CopyFile(context.Background(), src, dst, uint64(len(data)), func(n uint64) { last = n }))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
	assert.Equal(t, uint64(len(data)), last)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.True(t, mtime.Equal(info.ModTime()))
}

func TestCopyFile_Fast_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		size  int
		chunk int
	}{
		{name: "single chunk", size: 5*1024*1024 + 17, chunk: 0},
		{name: "multiple chunks unaligned", size: 9*1024*1024 + 4095, chunk: 1024 * 1024},
		{name: "multiple chunks aligned", size: 6 * 1024 * 1024, chunk: 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			src := filepath.Join(dir, "src.bin")
			dst := filepath.Join(dir, "dst.bin")

			data := randomFile(t, src, tt.size, 0o600)

			mtime := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
			require.NoError(t, os.Chtimes(src, mtime, mtime))

			h := newTestHandler(t, &schema.OS{}, Options{ChunkSize: tt.chunk})

			var reports []uint64
			require.NoError(t, h.CopyFile(context.Background(), src, dst, uint64(tt.size), func(n uint64) {
				reports = append(reports, n)
			}))

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			require.Len(t, got, tt.size)
			assert.True(t, bytes.Equal(data, got))

			require.NotEmpty(t, reports)
			assert.Equal(t, uint64(tt.size), reports[len(reports)-1])
			for k := 1; k < len(reports); k++ {
				assert.Greater(t, reports[k], reports[k-1])
			}

			info, err := os.Stat(dst)
			require.NoError(t, err)
			assert.True(t, mtime.Equal(info.ModTime()))
		})
	}
}

func TestCopyFile_ReplacesExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	data := randomFile(t, src, 10, 0o600)
	require.NoError(t, os.WriteFile(dst, make([]byte, 100), 0o600))

	h := newTestHandler(t, &schema.OS{}, Options{})
	require.NoError(t, h.CopyFile(context.Background(), src, dst, 10, nil))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyFile_Fast_Cancelled_NoDestination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	randomFile(t, src, 8*1024*1024, 0o600)

	h := newTestHandler(t, &schema.OS{}, Options{ChunkSize: 1024 * 1024})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := h.CopyFile(ctx, src, dst, 8*1024*1024, func(uint64) { cancel() })
	require.ErrorIs(t, err, context.Canceled)

	_, err = os.Stat(dst)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyFile_Small_Cancelled_NoDestination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	randomFile(t, src, 3*1024*1024, 0o600)

	h := newTestHandler(t, &schema.OS{}, Options{FastCopyThreshold: 64 * 1024 * 1024})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := h.CopyFile(ctx, src, dst, 3*1024*1024, func(uint64) { cancel() })
	require.ErrorIs(t, err, context.Canceled)

	_, err = os.Stat(dst)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyFile_MissingSource_Fail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := newTestHandler(t, &schema.OS{}, Options{})

	err := h.CopyFile(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "dst"), 1, nil)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = h.CopyFile(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "dst"), 10*1024*1024, nil)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadChunk_SourceShrunk_Fail(t *testing.T) {
	t.Parallel()

	buf := make([]byte, SectorSize)

	n, err := readChunk(bytes.NewReader(make([]byte, 100)), buf, 200)
	require.ErrorIs(t, err, ErrSourceChanged)
	assert.Equal(t, 100, n)

	n, err = readChunk(bytes.NewReader(make([]byte, 100)), buf, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	data := randomFile(t, src, 3*1024*1024+5, 0o600)

	same := filepath.Join(dir, "same.bin")
	require.NoError(t, os.WriteFile(same, data, 0o600))

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xFF
	differs := filepath.Join(dir, "differs.bin")
	require.NoError(t, os.WriteFile(differs, flipped, 0o600))

	shorter := filepath.Join(dir, "shorter.bin")
	require.NoError(t, os.WriteFile(shorter, data[:len(data)-1], 0o600))

	v := NewBlockVerifier(&schema.OS{}, 1024*1024)
	size := uint64(len(data))

	require.NoError(t, v.Verify(context.Background(), src, same, size))
	require.ErrorIs(t, v.Verify(context.Background(), src, differs, size), ErrVerificationFailed)
	require.ErrorIs(t, v.Verify(context.Background(), src, shorter, size), ErrVerificationFailed)
	require.ErrorIs(t, v.Verify(context.Background(), src, same, size+1), ErrVerificationFailed)

	empty1 := filepath.Join(dir, "empty1")
	empty2 := filepath.Join(dir, "empty2")
	require.NoError(t, os.WriteFile(empty1, nil, 0o600))
	require.NoError(t, os.WriteFile(empty2, nil, 0o600))
	require.NoError(t, v.Verify(context.Background(), empty1, empty2, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, v.Verify(ctx, src, same, size), context.Canceled)
}

func TestMoveFile_SameVolume_NoVerification(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := randomFile(t, src, 1000, 0o600)

	h := newTestHandler(t, &schema.OS{}, Options{})
	verifier := newMockVerifier(t)
	h.Verifier = verifier

	verifyCalled := false

	var last uint64
	res, err := h.MoveFile(context.Background(), src, dst, 1000, MoveOptions{
		Verify:   true,
		Progress: func(n uint64) { last = n },
		OnVerify: func() { verifyCalled = true },
	})
	require.NoError(t, err)

	assert.True(t, res.Renamed)
	assert.False(t, res.Verified)
	assert.False(t, verifyCalled)
	assert.Equal(t, uint64(1000), last)
	verifier.AssertNotCalled(t, "Verify")

	_, err = os.Stat(src)
	require.ErrorIs(t, err, os.ErrNotExist)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestMoveFile_CrossVolume_Verified(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := randomFile(t, src, 5*1024*1024, 0o600)

	h := newTestHandler(t, &crossDeviceOS{}, Options{})

	verifyCalled := false
	res, err := h.MoveFile(context.Background(), src, dst, uint64(len(data)), MoveOptions{
		Verify:   true,
		OnVerify: func() { verifyCalled = true },
	})
	require.NoError(t, err)

	assert.False(t, res.Renamed)
	assert.True(t, res.Verified)
	assert.True(t, verifyCalled)

	_, err = os.Stat(src)
	require.ErrorIs(t, err, os.ErrNotExist)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestMoveFile_CrossVolume_Mismatch_SourceKept(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	data := randomFile(t, src, 2000, 0o600)

	h := newTestHandler(t, &crossDeviceOS{}, Options{})
	verifier := newMockVerifier(t)
	verifier.On("Verify", mock.Anything, src, dst, uint64(2000)).Return(ErrVerificationFailed).Once()
	h.Verifier = verifier

	_, err := h.MoveFile(context.Background(), src, dst, 2000, MoveOptions{Verify: true})
	require.ErrorIs(t, err, ErrVerificationFailed)

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = os.Stat(dst)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMoveFile_CrossVolume_NoVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	randomFile(t, src, 2000, 0o600)

	h := newTestHandler(t, &crossDeviceOS{}, Options{})
	verifier := newMockVerifier(t)
	h.Verifier = verifier

	res, err := h.MoveFile(context.Background(), src, dst, 2000, MoveOptions{})
	require.NoError(t, err)
	assert.False(t, res.Verified)
	verifier.AssertNotCalled(t, "Verify")

	_, err = os.Stat(src)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemoveEmptyDirectories_DeepestFirst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a")
	ab := filepath.Join(a, "b")
	abc := filepath.Join(ab, "c")
	keep := filepath.Join(root, "keep")

	require.NoError(t, os.MkdirAll(abc, 0o755))
	require.NoError(t, os.MkdirAll(keep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(keep, "file"), nil, 0o600))

	h := newTestHandler(t, &schema.OS{}, Options{})

	removed := h.RemoveEmptyDirectories([]string{a, ab, keep, abc, filepath.Join(root, "missing")})
	assert.Equal(t, 3, removed)

	_, err := os.Stat(a)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(keep)
	require.NoError(t, err)
}
