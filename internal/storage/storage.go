// Package storage provides the durable key-value layer behind the local cache
// and the pending operation queue. Values are opaque serialized records.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Store is a durable string-keyed byte store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	Close() error
}

// Driver names a storage backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
)

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown storage driver")

// ParseDriver normalizes a configured driver name. Empty means sqlite.
func ParseDriver(name string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(name))); d {
	case "":
		return DriverSQLite, nil
	case DriverMemory, DriverFile, DriverSQLite:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
}

// Open returns a backend rooted at dataDir.
func Open(driver Driver, dataDir string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(filepath.Join(dataDir, "kv"))
	case DriverSQLite, "":
		return NewSQLite(filepath.Join(dataDir, "docent.db"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage key is empty")
	}
	return nil
}
