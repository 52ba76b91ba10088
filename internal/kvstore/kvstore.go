// Package kvstore persists small client-side UI state, such as editor
// settings, as raw values under string keys.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a minimal key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var validKeyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidKey reports whether key is usable by every Store implementation. Keys
// double as file names for FileStore, so path separators are rejected.
func ValidKey(key string) bool {
	return validKeyRe.MatchString(key)
}

func checkKey(key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("kvstore: invalid key %q", key)
	}
	return nil
}

// Open returns the store for backend ("file", "sqlite" or "memory") rooted
// at path. The memory backend ignores path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", backend)
	}
}
