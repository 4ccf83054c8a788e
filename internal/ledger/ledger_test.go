package ledger_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/horizonip/Disk-Migration-Tool/internal/ledger"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLocation = "/state/dsplit_0123456789abcdef.json"

func TestLoad_Missing_NotFound(t *testing.T) {
	t.Parallel()

	l := ledger.New(memfs.New())

	found, err := l.Load(testLocation)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, l.Len())
}

func TestLoad_Empty_FoundWithoutEntries(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, testLocation, nil, 0o644))

	l := ledger.New(fsys)

	found, err := l.Load(testLocation)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, l.Len())
}

func TestSaveLoad_RoundTrip_Success(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()

	l := ledger.New(fsys)
	l.SetSource(`C:\odd "source"\folder`)
	l.AddEntry("a.bin", "0000ABCD", 10)
	l.AddEntry(filepath.Join("dir", "b.bin"), "0000ABCD", 20)
	l.AddEntry("c.bin", "00001234", 30)
	l.AddEntry("a.bin", "00001234", 11)

	require.NoError(t, l.Save(testLocation))

	reloaded := ledger.New(fsys)

	found, err := reloaded.Load(testLocation)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, `C:\odd "source"\folder`, reloaded.Source())
	assert.Equal(t, 3, reloaded.Len())
	assert.Equal(t, l.Entries(), reloaded.Entries())

	e, ok := reloaded.GetEntry("a.bin")
	require.True(t, ok)
	assert.Equal(t, schema.LedgerEntry{RelativePath: "a.bin", DestinationID: "00001234", Size: 11}, e)

	assert.Equal(t, "0000ABCD", reloaded.GetSerial(filepath.Join("dir", "b.bin")))
	assert.Empty(t, reloaded.GetSerial("missing"))
	assert.True(t, reloaded.Contains("c.bin"))
	assert.False(t, reloaded.Contains("missing"))
}

func TestSaveLoad_NonUTF8Paths_RoundTrip(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()

	latin1 := "photos/caf\xe9.jpg"
	lookalike := "photos/caf\uFFFD.jpg"

	l := ledger.New(fsys)
	l.SetSource("/mnt/m\xfcsic")
	l.AddEntry(latin1, "0000ABCD", 42)
	l.AddEntry(lookalike, "00001234", 7)

	require.NoError(t, l.Save(testLocation))

	reloaded := ledger.New(fsys)

	found, err := reloaded.Load(testLocation)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "/mnt/m\xfcsic", reloaded.Source())
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Contains(latin1))
	assert.True(t, reloaded.Contains(lookalike))
	assert.Equal(t, "0000ABCD", reloaded.GetSerial(latin1))
	assert.Equal(t, "00001234", reloaded.GetSerial(lookalike))
	assert.Equal(t, l.Entries(), reloaded.Entries())
}

func TestLoad_InvalidRawPath_KeepsPrefix(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, testLocation, []byte(`{"source":"/src","entries":[`+
		`{"path":"a.bin","destinationId":"0000ABCD","size":1},`+
		`{"path":"b.bin","pathRaw":"!!not-base64!!","destinationId":"0000ABCD","size":2},`+
		`{"path":"c.bin","destinationId":"0000ABCD","size":3}]}`), 0o644))

	l := ledger.New(fsys)

	found, err := l.Load(testLocation)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, l.Contains("a.bin"))
	assert.False(t, l.Contains("b.bin"))
	assert.Equal(t, 1, l.Len())
}

func TestSaveLoad_Idempotent(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()

	l := ledger.New(fsys)
	l.SetSource("/data/photos")
	l.AddEntry("x", "00000001", 1)
	require.NoError(t, l.Save(testLocation))

	first, err := util.ReadFile(fsys, testLocation)
	require.NoError(t, err)

	reloaded := ledger.New(fsys)
	_, err = reloaded.Load(testLocation)
	require.NoError(t, err)
	require.NoError(t, reloaded.Save(testLocation))

	second, err := util.ReadFile(fsys, testLocation)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestSave_LeavesNoTemporaryFiles(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()

	l := ledger.New(fsys)
	l.AddEntry("x", "00000001", 1)
	require.NoError(t, l.Save(testLocation))
	require.NoError(t, l.Save(testLocation))

	infos, err := fsys.ReadDir("/state")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, filepath.Base(testLocation), infos[0].Name())
}

func TestLoad_Truncated_KeepsPrefix(t *testing.T) {
	t.Parallel()

	fsys := memfs.New()

	l := ledger.New(fsys)
	l.SetSource("/src")
	l.AddEntry("a", "00000001", 1)
	l.AddEntry("b", "00000001", 2)
	l.AddEntry("c", "00000002", 3)
	require.NoError(t, l.Save(testLocation))

	data, err := util.ReadFile(fsys, testLocation)
	require.NoError(t, err)

	cut := strings.Index(string(data), `"path": "c"`)
	require.Positive(t, cut)
	require.NoError(t, util.WriteFile(fsys, testLocation, data[:cut+5], 0o644))

	reloaded := ledger.New(fsys)

	found, err := reloaded.Load(testLocation)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, "/src", reloaded.Source())
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Contains("a"))
	assert.True(t, reloaded.Contains("b"))
	assert.False(t, reloaded.Contains("c"))
}

func TestLoad_Corrupt_NeverFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "garbage", content: "this is not json", want: nil},
		{name: "array root", content: `[{"path":"a"}]`, want: nil},
		{name: "bad entry", content: `{"entries":[{"path":"a","destinationId":"1","size":1},{"path":1}]}`, want: []string{"a"}},
		{name: "trailing garbage", content: `{"entries":[{"path":"a","destinationId":"1","size":1}]}}}}`, want: []string{"a"}},
		{name: "unknown keys", content: `{"version":3,"entries":[{"path":"a","destinationId":"1","size":1}],"x":{}}`, want: []string{"a"}},
		{name: "empty path skipped", content: `{"entries":[{"path":"","destinationId":"1","size":1},{"path":"b","destinationId":"1","size":1}]}`, want: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := memfs.New()
			require.NoError(t, util.WriteFile(fsys, testLocation, []byte(tt.content), 0o644))

			l := ledger.New(fsys)

			found, err := l.Load(testLocation)
			require.NoError(t, err)
			assert.True(t, found)

			got := []string{}
			for _, e := range l.Entries() {
				got = append(got, e.RelativePath)
			}

			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLoad_ReplacesPreviousState(t *testing.T) {
	t.Parallel()

	l := ledger.New(memfs.New())
	l.SetSource("/old")
	l.AddEntry("stale", "00000001", 1)

	found, err := l.Load(testLocation)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Zero(t, l.Len())
	assert.Empty(t, l.Source())
}

func TestTotals(t *testing.T) {
	t.Parallel()

	l := ledger.New(memfs.New())
	l.AddEntry("a", "00000001", 5)
	l.AddEntry("b", "00000001", 7)
	l.AddEntry("c", "00000002", 3)

	assert.Equal(t, map[string]uint64{"00000001": 12, "00000002": 3}, l.Totals())
}

func TestLocation_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := ledger.Location("/state", "/data/Photos")
	require.NoError(t, err)

	b, err := ledger.Location("/state", "/data/photos/")
	require.NoError(t, err)

	c, err := ledger.Location("/state", "/data/videos")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "/state", filepath.Dir(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), ledger.FilePrefix))
	assert.True(t, strings.HasSuffix(a, ledger.FileSuffix))
	assert.Len(t, filepath.Base(a), len(ledger.FilePrefix)+16+len(ledger.FileSuffix))
}
