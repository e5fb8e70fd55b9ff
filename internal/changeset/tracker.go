package changeset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/boxer-emu/boxer/internal/drive"
)

// DriveChanges groups changes by drive.
type DriveChanges struct {
	Key     string   `json:"key"`
	Source  string   `json:"source"` // host path
	Changes []Change `json:"changes"`
}

// SessionChangeset is the complete changeset for a session.
type SessionChangeset struct {
	SessionID string         `json:"session_id"`
	Drives    []DriveChanges `json:"drives"`
}

// Total returns the number of changes across all drives.
func (cs *SessionChangeset) Total() int {
	n := 0
	for _, d := range cs.Drives {
		n += len(d.Changes)
	}
	return n
}

type tracked struct {
	key    string
	source string
	snap   Snapshot
}

// Tracker holds the before-snapshots of a session's writable drives.
type Tracker struct {
	drives []tracked
}

// Begin snapshots every writable directory drive in bindings. Drives that
// cannot be read are skipped and reported in the returned errors.
func Begin(bindings []drive.Binding) (*Tracker, []error) {
	t := &Tracker{}
	var errs []error
	for _, b := range bindings {
		if b.Handle.Kind != drive.KindDirectory || b.Handle.ReadOnly {
			continue
		}
		snap, err := Take(b.Handle.Source)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to snapshot drive %s: %w", b.Key, err))
			continue
		}
		t.drives = append(t.drives, tracked{key: b.Key, source: b.Handle.Source, snap: snap})
	}
	return t, errs
}

// SaveSnapshots writes the before-snapshot of each tracked drive to
// pathFor(key), so a session that never reaches Finish can still be diffed.
func (t *Tracker) SaveSnapshots(pathFor func(key string) string) error {
	for _, d := range t.drives {
		if err := d.snap.Save(pathFor(d.key)); err != nil {
			return fmt.Errorf("failed to save snapshot of drive %s: %w", d.key, err)
		}
	}
	return nil
}

// Resume rebuilds a Tracker from snapshots written by SaveSnapshots. Drives
// with no saved snapshot are skipped.
func Resume(bindings []drive.Binding, pathFor func(key string) string) (*Tracker, []error) {
	t := &Tracker{}
	var errs []error
	for _, b := range bindings {
		if b.Handle.Kind != drive.KindDirectory || b.Handle.ReadOnly {
			continue
		}
		snap, err := Load(pathFor(b.Key))
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("failed to load snapshot of drive %s: %w", b.Key, err))
			}
			continue
		}
		t.drives = append(t.drives, tracked{key: b.Key, source: b.Handle.Source, snap: snap})
	}
	return t, errs
}

// Len returns the number of drives being tracked.
func (t *Tracker) Len() int {
	return len(t.drives)
}

// Finish snapshots the tracked drives again and returns what changed.
func (t *Tracker) Finish(sessionID string) (*SessionChangeset, []error) {
	cs := &SessionChangeset{SessionID: sessionID, Drives: []DriveChanges{}}
	var errs []error
	for _, d := range t.drives {
		after, err := Take(d.source)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to snapshot drive %s: %w", d.key, err))
			continue
		}
		if changes := Diff(d.snap, after); len(changes) > 0 {
			cs.Drives = append(cs.Drives, DriveChanges{Key: d.key, Source: d.source, Changes: changes})
		}
	}
	return cs, errs
}

// SaveChangeset saves a SessionChangeset to JSON.
func SaveChangeset(path string, cs *SessionChangeset) error {
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadChangeset loads a SessionChangeset from JSON.
func LoadChangeset(path string) (*SessionChangeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cs SessionChangeset
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}
