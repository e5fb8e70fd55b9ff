package changeset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// largeDirThreshold is the child count above which a directory is recorded
// as a summary instead of walked.
const largeDirThreshold = 500

// FileEntry records a single file's metadata at snapshot time.
type FileEntry struct {
	Path    string      `json:"path"`
	Size    int64       `json:"size"`
	ModTime time.Time   `json:"mod_time"`
	Mode    os.FileMode `json:"mode"`
	IsDir   bool        `json:"is_dir"`
	// For summarized directories: count of children
	ChildCount int `json:"child_count,omitempty"`
}

// Snapshot is a map of slash-separated relative paths to FileEntry.
type Snapshot map[string]FileEntry

// Take walks a drive directory and returns a Snapshot.
// Directories with more than 500 direct children are recorded with their
// child count and not walked.
func Take(root string) (Snapshot, error) {
	snap := make(Snapshot)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := FileEntry{
			Path:    rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
			IsDir:   d.IsDir(),
		}

		if d.IsDir() {
			children, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			entry.ChildCount = len(children)
			if entry.ChildCount > largeDirThreshold {
				snap[rel] = entry
				return filepath.SkipDir
			}
		}

		snap[rel] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Change types.
const (
	Created  = "created"
	Modified = "modified"
	Deleted  = "deleted"
)

// Change represents a single file change.
type Change struct {
	Path    string `json:"path"` // relative to the drive root
	Type    string `json:"type"` // "created", "modified", "deleted"
	OldSize int64  `json:"old_size,omitempty"`
	NewSize int64  `json:"new_size,omitempty"`
}

// Diff compares two snapshots and returns changes sorted by path.
// Directory entries only count as created or deleted; their size and
// mtime follow their contents.
func Diff(before, after Snapshot) []Change {
	var changes []Change

	for path, a := range after {
		b, exists := before[path]
		switch {
		case !exists:
			changes = append(changes, Change{Path: path, Type: Created, NewSize: a.Size})
		case a.IsDir && b.IsDir:
		case b.Size != a.Size || !b.ModTime.Equal(a.ModTime):
			changes = append(changes, Change{Path: path, Type: Modified, OldSize: b.Size, NewSize: a.Size})
		}
	}

	for path, b := range before {
		if _, exists := after[path]; !exists {
			changes = append(changes, Change{Path: path, Type: Deleted, OldSize: b.Size})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})

	return changes
}

// Save persists a snapshot to JSON file.
func (s Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a snapshot from JSON file.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}
