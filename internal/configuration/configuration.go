// Package configuration reads the dsplit settings from an optional settings
// file, with DSPLIT_* environment variables taking precedence.
package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

type osProvider interface {
	Stat(name string) (os.FileInfo, error)
}

// Handler is the principal implementation for the configuration services.
type Handler struct {
	GenericConfigReader genericConfigProvider
	osHandler           osProvider
	environ             func() []string
	lookupEnv           func(key string) (string, bool)
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(genericConfigReader genericConfigProvider, osHandler osProvider) *Handler {
	return &Handler{
		GenericConfigReader: genericConfigReader,
		osHandler:           osHandler,
		environ:             os.Environ,
		lookupEnv:           os.LookupEnv,
	}
}

// ReadGeneric reads the given settings files into a map (map[key]value).
func (c *Handler) ReadGeneric(filenames ...string) (map[string]string, error) {
	envMap, err := c.GenericConfigReader.Read(filenames...)
	if err != nil {
		return nil, fmt.Errorf("(config-read) %w", err)
	}

	return envMap, nil
}

// Environment returns the variables of the process environment that carry
// the [EnvPrefix] as a map (map[key]value).
func (c *Handler) Environment() map[string]string {
	envMap := make(map[string]string)

	for _, kv := range c.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		envMap[key] = value
	}

	return envMap
}

// MapKeyToString returns the value of key, or an empty string if unset.
func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return strings.TrimSpace(value)
	}

	return ""
}

// MapKeyToInt64 returns the value of key as int64. The fallback is returned if
// the key is unset, an unparseable value results in [ErrInvalidValue].
func (c *Handler) MapKeyToInt64(envMap map[string]string, key string, fallback int64) (int64, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return fallback, nil
	}

	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("(config-int) %w: %s=%q", ErrInvalidValue, key, value)
	}

	return intValue, nil
}

// MapKeyToUInt64 returns the value of key as uint64. The fallback is returned
// if the key is unset, an unparseable value results in [ErrInvalidValue].
func (c *Handler) MapKeyToUInt64(envMap map[string]string, key string, fallback uint64) (uint64, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return fallback, nil
	}

	uintValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("(config-uint) %w: %s=%q", ErrInvalidValue, key, value)
	}

	return uintValue, nil
}

// MapKeyToBool returns the value of key as bool. The fallback is returned if
// the key is unset, an unparseable value results in [ErrInvalidValue].
func (c *Handler) MapKeyToBool(envMap map[string]string, key string, fallback bool) (bool, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return fallback, nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, fmt.Errorf("(config-bool) %w: %s=%q", ErrInvalidValue, key, value)
	}

	return boolValue, nil
}

// MapKeyToList returns the comma separated value of key as a slice, with
// empty elements removed.
func (c *Handler) MapKeyToList(envMap map[string]string, key string) []string {
	list := []string{}

	for _, elem := range strings.Split(c.MapKeyToString(envMap, key), ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			list = append(list, elem)
		}
	}

	return list
}
