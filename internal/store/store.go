// Package store implements the shared call store: a directory holding one
// JSON file per key, written by an external producer and watched for changes.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/calls"
)

// DefaultKey is the key the producer writes call records to.
const DefaultKey = "calls"

const fileExt = ".json"

// Store is a file-backed key/value area.
type Store struct {
	dir string
}

// Open returns a store rooted at dir, creating the directory if needed so it
// can be watched before the producer writes anything.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create store directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute store directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Get returns the raw value of key. A missing key is not an error: it
// returns nil data.
func (s *Store) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read key %q: %w", key, err)
	}
	return data, nil
}

// Put replaces the value of key. The file is written next to its final
// location and renamed over it so readers never see a partial value.
func (s *Store) Put(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("unable to replace key %q: %w", key, err)
	}
	return nil
}

// Prepend adds rec to the front of the record list under key. Unreadable
// content is discarded and the list starts over.
func (s *Store) Prepend(key string, rec calls.Record) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}

	snapshot, err := calls.DecodeSnapshot(data)
	if err != nil {
		log.Warn("discarding unreadable call list", "key", key, "error", err)
		snapshot = nil
	}

	snapshot = append([]calls.Record{rec}, snapshot...)
	out, err := calls.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	return s.Put(key, out)
}
