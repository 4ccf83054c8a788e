// Package ledger implements the persisted transfer ledger of a source folder.
// The ledger maps every relative path that was already transferred to the
// destination that received it, which is what makes a migration resumable.
// Resumability keys purely on the relative path: a file that was modified
// after being recorded is still treated as done.
package ledger

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/zeebo/blake3"
)

const (
	// FilePrefix is the file name prefix of all ledger files.
	FilePrefix = "dsplit_"

	// FileSuffix is the file name suffix of all ledger files.
	FileSuffix = ".json"

	ledgerFilePerms = 0o644
	ledgerDirPerms  = 0o755
	locationHexLen  = 16
)

// Ledger is the in-memory state of a transfer ledger. It is safe for
// concurrent use, although during a migration only the worker touches it.
type Ledger struct {
	sync.RWMutex
	fsys    billy.Filesystem
	source  string
	entries map[string]schema.LedgerEntry
}

// document is the persisted form of a [Ledger].
type document struct {
	Source    string   `json:"source"`
	SourceRaw string   `json:"sourceRaw,omitempty"`
	Entries   []record `json:"entries"`
}

// record is the persisted form of a [schema.LedgerEntry]. Paths that are not
// valid UTF-8 are additionally stored base64-encoded in PathRaw, as JSON
// strings cannot carry them unchanged.
type record struct {
	Path          string `json:"path"`
	PathRaw       string `json:"pathRaw,omitempty"`
	DestinationID string `json:"destinationId"`
	Size          uint64 `json:"size"`
}

func newRecord(e schema.LedgerEntry) record {
	relativePath, raw := encodePath(e.RelativePath)

	return record{
		Path:          relativePath,
		PathRaw:       raw,
		DestinationID: e.DestinationID,
		Size:          e.Size,
	}
}

func (r record) entry() (schema.LedgerEntry, error) {
	relativePath, err := decodePath(r.Path, r.PathRaw)
	if err != nil {
		return schema.LedgerEntry{}, err
	}

	return schema.LedgerEntry{
		RelativePath:  relativePath,
		DestinationID: r.DestinationID,
		Size:          r.Size,
	}, nil
}

// encodePath returns the readable form of a path and, if the path is not
// valid UTF-8, its exact bytes in base64.
func encodePath(p string) (string, string) {
	if utf8.ValidString(p) {
		return p, ""
	}

	return strings.ToValidUTF8(p, string(utf8.RuneError)), base64.StdEncoding.EncodeToString([]byte(p))
}

func decodePath(readable string, raw string) (string, error) {
	if raw == "" {
		return readable, nil
	}

	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: raw path of %q: %w", ErrMalformed, readable, err)
	}

	return string(b), nil
}

// New returns a pointer to a new, empty [Ledger] that loads from and saves to
// the given filesystem.
func New(fsys billy.Filesystem) *Ledger {
	return &Ledger{
		fsys:    fsys,
		entries: make(map[string]schema.LedgerEntry),
	}
}

// Location returns the deterministic location of the ledger for a source
// folder inside the given ledger directory. The source folder is normalized
// (absolute, cleaned, case-folded) so re-selecting the same folder always
// finds its own history, regardless of the destinations it was written to.
func Location(ledgerDir string, sourceFolder string) (string, error) {
	absPath, err := filepath.Abs(sourceFolder)
	if err != nil {
		return "", fmt.Errorf("(ledger-location) failed to get absolute path: %w", err)
	}

	sum := blake3.Sum256([]byte(strings.ToLower(filepath.Clean(absPath))))
	name := FilePrefix + hex.EncodeToString(sum[:])[:locationHexLen] + FileSuffix

	return filepath.Join(ledgerDir, name), nil
}

// Load replaces the ledger contents with the record persisted at location.
// A missing record is the normal "no history" case and returns false without
// an error. A corrupt or truncated record never fails: the ledger keeps all
// entries that could be read before the damage and reports the record as
// found. Only failures to read the record at all are returned as errors.
func (l *Ledger) Load(location string) (bool, error) {
	l.Lock()
	defer l.Unlock()

	l.source = ""
	l.entries = make(map[string]schema.LedgerEntry)

	f, err := l.fsys.Open(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("(ledger-load) failed to open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return false, fmt.Errorf("(ledger-load) failed to read: %w", err)
	}

	if err := l.decode(data); err != nil {
		slog.Warn("Ledger is damaged, keeping readable entries",
			"path", location,
			"entries", len(l.entries),
			"err", err,
		)
	}

	return true, nil
}

// decode reads the record token by token, so that every entry preceding a
// damaged region is kept. It returns the first decoding error, if any.
func (l *Ledger) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	var source string

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("(ledger-decode) failed to read key: %w", err)
		}

		key, _ := tok.(string)

		switch key {
		case "source":
			if err := dec.Decode(&source); err != nil {
				return fmt.Errorf("(ledger-decode) failed to read source: %w", err)
			}
			l.source = source

		case "sourceRaw":
			var raw string
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("(ledger-decode) failed to read source: %w", err)
			}

			decoded, err := decodePath(source, raw)
			if err != nil {
				return fmt.Errorf("(ledger-decode) %w", err)
			}
			l.source = decoded

		case "entries":
			if err := l.decodeEntries(dec); err != nil {
				return err
			}

		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("(ledger-decode) failed to skip %q: %w", key, err)
			}
		}
	}

	return expectDelim(dec, '}')
}

func (l *Ledger) decodeEntries(dec *json.Decoder) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}

	for dec.More() {
		var r record
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("(ledger-decode) failed to read entry: %w", err)
		}

		e, err := r.entry()
		if err != nil {
			return fmt.Errorf("(ledger-decode) %w", err)
		}

		if e.RelativePath == "" {
			continue
		}

		l.entries[e.RelativePath] = e
	}

	return expectDelim(dec, ']')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("(ledger-decode) expected %q: %w", want, err)
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("(ledger-decode) %w: expected %q, got %v", ErrMalformed, want, tok)
	}

	return nil
}

// Save writes the complete ledger to location. The record is written to a
// temporary file next to it which then replaces the old record, so that a
// crash never leaves a half-written ledger behind.
func (l *Ledger) Save(location string) error {
	l.RLock()
	entries := l.sortedEntries()
	doc := document{
		Entries: make([]record, 0, len(entries)),
	}
	doc.Source, doc.SourceRaw = encodePath(l.source)
	l.RUnlock()

	for _, e := range entries {
		doc.Entries = append(doc.Entries, newRecord(e))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("(ledger-save) failed to marshal: %w", err)
	}

	dir := path.Dir(filepath.ToSlash(location))
	if err := l.fsys.MkdirAll(dir, ledgerDirPerms); err != nil {
		return fmt.Errorf("(ledger-save) failed to create directory: %w", err)
	}

	tmp, err := l.fsys.TempFile(dir, "."+path.Base(filepath.ToSlash(location))+".tmp-")
	if err != nil {
		return fmt.Errorf("(ledger-save) failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			l.fsys.Remove(tmpName) //nolint:errcheck
		}
	}()

	if err := writeAndSync(tmp, data); err != nil {
		return fmt.Errorf("(ledger-save) %w", err)
	}

	if err := l.fsys.Rename(tmpName, location); err != nil {
		return fmt.Errorf("(ledger-save) failed to rename: %w", err)
	}
	committed = true

	if chmodder, ok := l.fsys.(billy.Change); ok {
		_ = chmodder.Chmod(location, ledgerFilePerms)
	}

	return nil
}

// writeAndSync writes data to f, flushes it to stable storage where the
// filesystem supports it and closes f.
func writeAndSync(f billy.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck

		return fmt.Errorf("failed to write: %w", err)
	}

	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close() //nolint:errcheck

			return fmt.Errorf("failed to sync: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close: %w", err)
	}

	return nil
}

// Contains returns whether a relative path was already transferred.
func (l *Ledger) Contains(relativePath string) bool {
	l.RLock()
	defer l.RUnlock()

	_, ok := l.entries[relativePath]

	return ok
}

// AddEntry records a transferred relative path. An existing entry for the
// same relative path is replaced.
func (l *Ledger) AddEntry(relativePath string, destinationID string, size uint64) {
	l.Lock()
	defer l.Unlock()

	l.entries[relativePath] = schema.LedgerEntry{
		RelativePath:  relativePath,
		DestinationID: destinationID,
		Size:          size,
	}
}

// GetEntry returns the entry of a relative path, if one exists.
func (l *Ledger) GetEntry(relativePath string) (schema.LedgerEntry, bool) {
	l.RLock()
	defer l.RUnlock()

	e, ok := l.entries[relativePath]

	return e, ok
}

// GetSerial returns the destination identifier that a relative path was
// transferred to, or an empty string if it was never transferred.
func (l *Ledger) GetSerial(relativePath string) string {
	e, _ := l.GetEntry(relativePath)

	return e.DestinationID
}

// Len returns the amount of entries in the ledger.
func (l *Ledger) Len() int {
	l.RLock()
	defer l.RUnlock()

	return len(l.entries)
}

// Entries returns a copy of all entries, ordered by relative path.
func (l *Ledger) Entries() []schema.LedgerEntry {
	l.RLock()
	defer l.RUnlock()

	return l.sortedEntries()
}

func (l *Ledger) sortedEntries() []schema.LedgerEntry {
	entries := make([]schema.LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})

	return entries
}

// Source returns the source folder that the ledger belongs to.
func (l *Ledger) Source() string {
	l.RLock()
	defer l.RUnlock()

	return l.source
}

// SetSource sets the source folder that the ledger belongs to.
func (l *Ledger) SetSource(folder string) {
	l.Lock()
	defer l.Unlock()

	l.source = folder
}

// Totals returns the summed size of all entries per destination identifier.
func (l *Ledger) Totals() map[string]uint64 {
	l.RLock()
	defer l.RUnlock()

	totals := make(map[string]uint64)
	for _, e := range l.entries {
		totals[e.DestinationID] += e.Size
	}

	return totals
}
