// Package store is the durable state layer. All keys live in a single JSON
// document on disk, mirrored in memory, with every write flushed through a
// temp file and an atomic rename.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const stateFile = "state.json"

// Store is a file-backed key/value document. Values are stored as raw JSON so
// each repository controls its own schema.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]json.RawMessage
}

// Open loads or creates the state document under dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenStore, err)
	}

	s := &Store{
		path: filepath.Join(dir, stateFile),
		data: map[string]json.RawMessage{},
	}

	raw, err := os.ReadFile(s.path)

	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrOpenStore, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	return s, nil
}

// get decodes the value at key into out, reporting whether the key exists
func (s *Store) get(key string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: key %s: %v", ErrCorruptState, key, err)
	}

	return true, nil
}

// put encodes value at key and flushes the document to disk
func (s *Store) put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding key %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = raw

	return s.flushLocked()
}

// remove deletes key and flushes. Removing an absent key is a no-op.
func (s *Store) remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}

	delete(s.data, key)

	return s.flushLocked()
}

// flushLocked writes the full document through a temp file and renames it
// into place so a crash mid-write never truncates existing state. Callers
// hold mu.
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), stateFile+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteState, err)
	}

	defer func() {
		tmp.Close()           //nolint:errcheck // already closed on success
		os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success
	}()

	if _, err := tmp.Write(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteState, err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteState, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteState, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteState, err)
	}

	return nil
}
