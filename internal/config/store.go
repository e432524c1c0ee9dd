package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the shared configuration object that plugin configuration
// broadcasts consume. Keys map to opaque JSON values.
type Store interface {
	// Get returns the values stored under keys. Absent keys are omitted.
	Get(keys ...string) (map[string]json.RawMessage, error)

	// Set merges record into the store.
	Set(record map[string]json.RawMessage) error

	// Clear removes every stored key.
	Clear() error
}

// FileStore is a JSON-file-backed Store. Writes go through a temp file
// rename so a crash mid-write never corrupts the record.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get implements Store.
func (s *FileStore) Get(keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.read()
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if v, ok := record[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Set implements Store.
func (s *FileStore) Set(record map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range record {
		current[k] = v
	}
	return s.write(current)
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, err
	}

	record := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("store file %s is corrupt: %w", s.path, err)
	}
	return record, nil
}

func (s *FileStore) write(record map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu     sync.Mutex
	record map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{record: make(map[string]json.RawMessage)}
}

// Get implements Store.
func (s *MemoryStore) Get(keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if v, ok := s.record[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Set implements Store.
func (s *MemoryStore) Set(record map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range record {
		s.record[k] = v
	}
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = make(map[string]json.RawMessage)
	return nil
}
