// Package file implements session persistence as a single JSON snapshot on
// local disk. It is the default backend for single-instance deployments
// without a database.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
)

// SnapshotStore persists the full session map to one JSON file. Writes go
// through a temp file plus rename so a crash mid-write never leaves a
// truncated snapshot behind.
type SnapshotStore struct {
	path string
	mu   sync.Mutex
}

// NewSnapshotStore creates a store writing to path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the snapshot. A missing file is not an error: it means a fresh
// deployment, and an empty snapshot is returned.
func (s *SnapshotStore) Load(ctx context.Context) (tutor.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tutor.Snapshot{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	// JSON object keys are strings; user IDs are numeric.
	var raw map[string]*tutor.Session
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}

	snap := make(tutor.Snapshot, len(raw))
	for key, sess := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot %s: bad user id %q", s.path, key)
		}
		snap[tutor.UserID(id)] = sess
	}

	return snap, nil
}

// Save writes the full snapshot atomically, replacing the previous file.
func (s *SnapshotStore) Save(ctx context.Context, snap tutor.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make(map[string]*tutor.Session, len(snap))
	for id, sess := range snap {
		raw[strconv.FormatInt(int64(id), 10)] = sess
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string {
	return s.path
}
