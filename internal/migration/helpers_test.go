package migration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/horizonip/Disk-Migration-Tool/internal/io"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type recordingObserver struct {
	sync.Mutex
	progress []int
	files    []string
	errors   []string
	results  []Result
}

func (o *recordingObserver) OnProgress(permille int) {
	o.Lock()
	defer o.Unlock()
	o.progress = append(o.progress, permille)
}

func (o *recordingObserver) OnFile(name string) {
	o.Lock()
	defer o.Unlock()
	o.files = append(o.files, name)
}

func (o *recordingObserver) OnError(text string) {
	o.Lock()
	defer o.Unlock()
	o.errors = append(o.errors, text)
}

func (o *recordingObserver) OnComplete(result Result) {
	o.Lock()
	defer o.Unlock()
	o.results = append(o.results, result)
}

type stubFS struct {
	sync.Mutex
	created []string
	failOn  map[string]error
}

func (s *stubFS) EnsureDirectory(path string) error {
	s.Lock()
	defer s.Unlock()

	if err, ok := s.failOn[path]; ok {
		return err
	}
	s.created = append(s.created, path)

	return nil
}

type stubIO struct {
	sync.Mutex
	transfer    func(ctx context.Context, src string, size uint64, progress io.ProgressFunc) error
	transferred []string
	cleanups    int
}

func (s *stubIO) CopyFile(ctx context.Context, src string, _ string, size uint64, progress io.ProgressFunc) error {
	s.Lock()
	s.transferred = append(s.transferred, src)
	s.Unlock()

	if s.transfer == nil {
		progress(size)

		return nil
	}

	return s.transfer(ctx, src, size, progress)
}

func (s *stubIO) MoveFile(ctx context.Context, src string, dst string, size uint64, opts io.MoveOptions) (io.MoveResult, error) {
	return io.MoveResult{}, s.CopyFile(ctx, src, dst, size, opts.Progress)
}

func (s *stubIO) RemoveEmptyDirectories([]string) int {
	s.Lock()
	defer s.Unlock()
	s.cleanups++

	return 0
}

type stubLedger struct {
	sync.Mutex
	source  string
	entries []string
	saves   int
}

func (s *stubLedger) AddEntry(relativePath string, _ string, _ uint64) {
	s.Lock()
	defer s.Unlock()
	s.entries = append(s.entries, relativePath)
}

func (s *stubLedger) SetSource(folder string) {
	s.Lock()
	defer s.Unlock()
	s.source = folder
}

func (s *stubLedger) Save(string) error {
	s.Lock()
	defer s.Unlock()
	s.saves++

	return nil
}

type fixedVerifier struct {
	sync.Mutex
	err   error
	calls int
}

func (v *fixedVerifier) Verify(context.Context, string, string, uint64) error {
	v.Lock()
	defer v.Unlock()
	v.calls++

	return v.err
}

// crossDeviceOS refuses renames like a move between two volumes would.
type crossDeviceOS struct {
	schema.OS
}

func (*crossDeviceOS) Rename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
}

type sourceTree struct {
	folder string
	items  []*schema.JobItem
	total  uint64
}

// newSourceTree creates a source folder "photos" holding the directory "a",
// the file "a/one.txt" and the file "two.txt". The directory and its file go
// to destination 0, "two.txt" goes to destination 1.
func newSourceTree(t *testing.T) sourceTree {
	t.Helper()

	folder := filepath.Join(t.TempDir(), "photos")
	require.NoError(t, os.MkdirAll(filepath.Join(folder, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "a", "one.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "two.txt"), []byte("world!!"), 0o644))

	return sourceTree{
		folder: folder,
		items: []*schema.JobItem{
			{WorkItem: schema.WorkItem{SourcePath: filepath.Join(folder, "a"), RelativePath: "a", IsDirectory: true}, Destinations: []int{0}},
			{WorkItem: schema.WorkItem{SourcePath: filepath.Join(folder, "a", "one.txt"), RelativePath: filepath.Join("a", "one.txt"), Size: 5}, Destinations: []int{0}},
			{WorkItem: schema.WorkItem{SourcePath: filepath.Join(folder, "two.txt"), RelativePath: "two.txt", Size: 7}, Destinations: []int{1}},
		},
		total: 12,
	}
}

func (s sourceTree) job(t *testing.T, mode schema.Mode, verify bool) *schema.MigrationJob {
	t.Helper()

	return &schema.MigrationJob{
		Items: s.items,
		Destinations: []schema.DestinationVolume{
			{Serial: 1, RootPath: t.TempDir()},
			{Serial: 2, RootPath: t.TempDir()},
		},
		SourceFolderName:   "photos",
		SourceFolder:       s.folder,
		LedgerPath:         "/ledger/dsplit_test.json",
		Mode:               mode,
		VerifyBeforeDelete: verify,
		TotalBytes:         s.total,
	}
}

// syntheticJob returns a job of n files of the given size on one destination.
func syntheticJob(n int, size uint64) *schema.MigrationJob {
	job := &schema.MigrationJob{
		Destinations:     []schema.DestinationVolume{{Serial: 1, RootPath: "/dst"}},
		SourceFolderName: "src",
		SourceFolder:     "/src",
		LedgerPath:       "/ledger/dsplit_test.json",
	}

	for k := range n {
		name := "file" + string(rune('a'+k%26)) + string(rune('a'+k/26))
		job.Items = append(job.Items, &schema.JobItem{
			WorkItem:     schema.WorkItem{SourcePath: "/src/" + name, RelativePath: name, Size: size},
			Destinations: []int{0},
		})
		job.TotalBytes += size
	}

	return job
}
