// Package store holds the engine's durable output: the current-state
// snapshot and the append-only alert log. The engine is the only writer;
// the API layer and CLI read the same files at any time without locking.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/znetops/netmon/internal/status"
)

const stateFile = "state.json"

// StateStore persists the full status table as one JSON document. Writes go
// through a temp file plus rename, so a reader always sees either the prior
// snapshot or the new one, never a partial write.
type StateStore struct {
	path string
}

// NewStateStore creates the data directory if needed and returns a store
// rooted there.
func NewStateStore(dir string) (*StateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %q: %w", dir, err)
	}
	return &StateStore{path: filepath.Join(dir, stateFile)}, nil
}

// Path returns the snapshot file location.
func (s *StateStore) Path() string {
	return s.path
}

// Write replaces the persisted snapshot with the given table.
func (s *StateStore) Write(snapshot map[string]status.TargetStatus) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Read returns the last persisted snapshot, or an empty table if nothing has
// been written yet.
func (s *StateStore) Read() (map[string]status.TargetStatus, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]status.TargetStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot map[string]status.TargetStatus
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = map[string]status.TargetStatus{}
	}
	return snapshot, nil
}
