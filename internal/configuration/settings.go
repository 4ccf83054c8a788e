package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/horizonip/Disk-Migration-Tool/internal/io"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
)

const (
	// DefaultConfigFile is the settings file that is read if it exists.
	DefaultConfigFile = "/etc/dsplit/dsplit.env"

	// EnvPrefix is the prefix of all setting keys.
	EnvPrefix = "DSPLIT_"

	KeyLedgerDir         = EnvPrefix + "LEDGER_DIR"
	KeyMode              = EnvPrefix + "MODE"
	KeyVerify            = EnvPrefix + "VERIFY"
	KeyFastCopyThreshold = EnvPrefix + "FAST_COPY_THRESHOLD"
	KeyChunkSize         = EnvPrefix + "CHUNK_SIZE"
	KeyExcludes          = EnvPrefix + "EXCLUDES"
)

// Settings are the resolved dsplit settings.
type Settings struct {
	// LedgerDir is the directory holding the transfer ledgers.
	LedgerDir string

	Mode   schema.Mode
	Verify bool

	// FastCopyThreshold is the file size from which on the fast copy
	// pipeline is used.
	FastCopyThreshold uint64

	// ChunkSize is the size of each of the two fast copy buffers.
	ChunkSize int

	// Excludes are the doublestar patterns excluded from a source scan.
	Excludes []string
}

// IOOptions returns the [io.Options] described by the [Settings].
func (s Settings) IOOptions() io.Options {
	return io.Options{
		FastCopyThreshold: s.FastCopyThreshold,
		ChunkSize:         s.ChunkSize,
	}
}

// Load resolves the [Settings] from the defaults, the given settings file and
// the environment, in increasing order of precedence. An empty path reads the
// [DefaultConfigFile] if it exists, an explicitly given path must exist.
func (c *Handler) Load(path string) (Settings, error) {
	envMap := make(map[string]string)

	file, required := path, true
	if file == "" {
		file, required = DefaultConfigFile, false
	}

	_, err := c.osHandler.Stat(file)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		if required {
			return Settings{}, fmt.Errorf("(config-load) %w: %s", ErrConfigNotFound, file)
		}

	case err != nil:
		return Settings{}, fmt.Errorf("(config-load) failed to stat: %w", err)

	default:
		fileMap, err := c.ReadGeneric(file)
		if err != nil {
			return Settings{}, fmt.Errorf("(config-load) %w", err)
		}
		envMap = fileMap
	}

	for key, value := range c.Environment() {
		envMap[key] = value
	}

	return c.resolve(envMap)
}

func (c *Handler) resolve(envMap map[string]string) (Settings, error) {
	var err error

	settings := Settings{
		LedgerDir: c.MapKeyToString(envMap, KeyLedgerDir),
		Excludes:  c.MapKeyToList(envMap, KeyExcludes),
	}

	if settings.LedgerDir == "" {
		settings.LedgerDir = c.defaultLedgerDir()
	}

	mode, ok := schema.ParseMode(c.MapKeyToString(envMap, KeyMode))
	if !ok {
		return Settings{}, fmt.Errorf("(config-mode) %w: %s=%q", ErrInvalidValue, KeyMode, envMap[KeyMode])
	}
	settings.Mode = mode

	if settings.Verify, err = c.MapKeyToBool(envMap, KeyVerify, true); err != nil {
		return Settings{}, err
	}

	if settings.FastCopyThreshold, err = c.MapKeyToUInt64(envMap, KeyFastCopyThreshold, io.DefaultFastCopyThreshold); err != nil {
		return Settings{}, err
	}

	chunkSize, err := c.MapKeyToInt64(envMap, KeyChunkSize, io.DefaultChunkSize)
	if err != nil {
		return Settings{}, err
	}

	if chunkSize <= 0 || chunkSize%io.SectorSize != 0 {
		return Settings{}, fmt.Errorf("(config-chunk) %w: %s must be a positive multiple of %d", ErrInvalidValue, KeyChunkSize, io.SectorSize)
	}
	settings.ChunkSize = int(chunkSize)

	return settings, nil
}

// defaultLedgerDir returns the XDG state location for the ledgers.
func (c *Handler) defaultLedgerDir() string {
	if xdg, ok := c.lookupEnv("XDG_STATE_HOME"); ok && xdg != "" {
		return filepath.Join(xdg, "dsplit")
	}

	if home, ok := c.lookupEnv("HOME"); ok && home != "" {
		return filepath.Join(home, ".local", "state", "dsplit")
	}

	return filepath.Join(os.TempDir(), "dsplit")
}
