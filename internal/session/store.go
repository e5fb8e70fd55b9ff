package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrNotFound is returned when no record exists for an ID.
var ErrNotFound = errors.New("session not found")

// Store manages session records at ~/.boxer/sessions/
type Store struct {
	dir string
}

// NewStore opens the store in the user's boxer directory.
func NewStore() (*Store, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStoreAt(filepath.Join(home, ".boxer", "sessions"))
}

// NewStoreAt opens a store rooted at dir, creating it if needed.
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// ChangesPath returns where the changeset for session id is kept.
func (s *Store) ChangesPath(id string) string {
	return filepath.Join(s.dir, id+".changes.json")
}

// SnapshotPath returns where the start-of-session snapshot of drive key is
// kept for session id.
func (s *Store) SnapshotPath(id, key string) string {
	return filepath.Join(s.dir, id+"."+key+".snapshot.json")
}

// RemoveSnapshots deletes the drive snapshots of session id.
func (s *Store) RemoveSnapshots(id string) error {
	paths, err := filepath.Glob(filepath.Join(s.dir, id+".*.snapshot.json"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
	}
	return nil
}

// Save persists a record to disk
func (s *Store) Save(r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.recordPath(r.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a record by ID. A unique ID prefix is accepted.
func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		full, perr := s.resolvePrefix(id)
		if perr != nil {
			return nil, perr
		}
		data, err = os.ReadFile(s.recordPath(full))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &r, nil
}

func (s *Store) resolvePrefix(prefix string) (string, error) {
	ids, err := s.ids()
	if err != nil {
		return "", err
	}

	var match string
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("session id %q is ambiguous", prefix)
		}
		match = id
	}
	if prefix == "" || match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return match, nil
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		id := strings.TrimSuffix(name, ".json")
		// Changesets and snapshots are <id>.<something>.json
		if entry.IsDir() || id == name || strings.Contains(id, ".") {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// List returns all saved records, most recent first
func (s *Store) List() ([]*Record, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	records := []*Record{}
	for _, id := range ids {
		r, err := s.Load(id)
		if err != nil {
			continue // Skip invalid records
		}
		records = append(records, r)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// Latest returns the most recently started record.
func (s *Store) Latest() (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no sessions recorded", ErrNotFound)
	}
	return records[0], nil
}

// Delete removes a record, its changeset and its drive snapshots
func (s *Store) Delete(id string) error {
	for _, path := range []string{s.recordPath(id), s.ChangesPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
	}
	return s.RemoveSnapshots(id)
}

// Dir returns the session storage directory
func (s *Store) Dir() string {
	return s.dir
}
