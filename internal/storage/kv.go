// Copyright (c) 2025 Lumen Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenforge/lumen-tui/internal/util"
)

// =============================================================================
// KEY-VALUE BOUNDARY
// =============================================================================

// KeyValueStore is the durable storage boundary. Values are opaque
// byte slices; a missing key is not an error.
type KeyValueStore interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)

	// Set writes the value for key, replacing any prior value.
	Set(key string, value []byte) error

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Close releases backend resources.
	Close() error
}

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileStore persists each key as one JSON file in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// Get implements KeyValueStore.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set implements KeyValueStore. The write is atomic with fsync so a
// crash never leaves a truncated value behind.
func (s *FileStore) Set(key string, value []byte) error {
	return util.AtomicWriteFile(s.path(key), value, 0o644)
}

// Delete implements KeyValueStore.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close implements KeyValueStore.
func (s *FileStore) Close() error {
	return nil
}

// sanitizeKey keeps keys safe to use as filenames.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
