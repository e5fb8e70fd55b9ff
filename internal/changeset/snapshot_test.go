package changeset

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTake_BasicFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "KEEN4.EXE"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.TXT"), []byte("read me"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "SAVES"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SAVES", "SAVE1.DAT"), []byte("nested"), 0644))

	snap, err := Take(dir)
	require.NoError(t, err)
	assert.Len(t, snap, 4)
	assert.Equal(t, int64(5), snap["KEEN4.EXE"].Size)
	assert.True(t, snap["SAVES"].IsDir)
	assert.Equal(t, 1, snap["SAVES"].ChildCount)
	assert.Equal(t, int64(6), snap["SAVES/SAVE1.DAT"].Size)
}

func TestTake_SummarizesLargeDirs(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "ART")
	require.NoError(t, os.MkdirAll(big, 0755))
	for i := 0; i <= largeDirThreshold; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(big, fmt.Sprintf("F%04d.PCX", i)), []byte("x"), 0644))
	}

	snap, err := Take(dir)
	require.NoError(t, err)
	assert.Contains(t, snap, "ART")
	assert.Equal(t, largeDirThreshold+1, snap["ART"].ChildCount)
	assert.NotContains(t, snap, "ART/F0000.PCX")
}

func TestTake_EmptyDir(t *testing.T) {
	snap, err := Take(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestTake_MissingDir(t *testing.T) {
	_, err := Take(filepath.Join(t.TempDir(), "gone"))
	assert.Error(t, err)
}

func TestDiff_Created(t *testing.T) {
	before := Snapshot{}
	after := Snapshot{"NEW.TXT": {Path: "NEW.TXT", Size: 100}}

	changes := Diff(before, after)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Path: "NEW.TXT", Type: Created, NewSize: 100}, changes[0])
}

func TestDiff_Deleted(t *testing.T) {
	before := Snapshot{"OLD.TXT": {Path: "OLD.TXT", Size: 50}}
	after := Snapshot{}

	changes := Diff(before, after)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Path: "OLD.TXT", Type: Deleted, OldSize: 50}, changes[0])
}

func TestDiff_Modified(t *testing.T) {
	now := time.Now()
	before := Snapshot{"CONFIG.CK4": {Path: "CONFIG.CK4", Size: 100, ModTime: now}}
	after := Snapshot{"CONFIG.CK4": {Path: "CONFIG.CK4", Size: 200, ModTime: now.Add(time.Second)}}

	changes := Diff(before, after)
	require.Len(t, changes, 1)
	assert.Equal(t, Modified, changes[0].Type)
	assert.Equal(t, int64(100), changes[0].OldSize)
	assert.Equal(t, int64(200), changes[0].NewSize)
}

func TestDiff_IgnoresDirectoryMetadata(t *testing.T) {
	now := time.Now()
	before := Snapshot{"SAVES": {Path: "SAVES", IsDir: true, ModTime: now, ChildCount: 1}}
	after := Snapshot{"SAVES": {Path: "SAVES", IsDir: true, ModTime: now.Add(time.Minute), ChildCount: 2}}

	assert.Empty(t, Diff(before, after))
}

func TestDiff_NoChanges(t *testing.T) {
	now := time.Now()
	snap := Snapshot{"A.TXT": {Path: "A.TXT", Size: 10, ModTime: now}}
	assert.Empty(t, Diff(snap, snap))
}

func TestDiff_SortedOutput(t *testing.T) {
	before := Snapshot{}
	after := Snapshot{
		"Z.TXT": {Path: "Z.TXT"},
		"A.TXT": {Path: "A.TXT"},
		"M.TXT": {Path: "M.TXT"},
	}

	changes := Diff(before, after)
	require.Len(t, changes, 3)
	assert.Equal(t, "A.TXT", changes[0].Path)
	assert.Equal(t, "M.TXT", changes[1].Path)
	assert.Equal(t, "Z.TXT", changes[2].Path)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	snap := Snapshot{"GAME.EXE": {Path: "GAME.EXE", Size: 42, Mode: 0644}}

	require.NoError(t, snap.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded["GAME.EXE"].Size)
}
