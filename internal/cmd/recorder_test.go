package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/boxer-emu/boxer/internal/changeset"
	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/emulator"
	"github.com/boxer-emu/boxer/internal/engine/sim"
	"github.com/boxer-emu/boxer/internal/log"
	"github.com/boxer-emu/boxer/internal/session"
	"github.com/boxer-emu/boxer/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSession runs lines against a sim engine with dir mounted as C: and
// returns the recorder. onProgram is called each time a program starts.
func runSession(t *testing.T, dir string, track bool, lines []string, onProgram func()) (*session.Record, *sessionRecorder) {
	t.Helper()

	rec := session.NewRecord()
	r := newSessionRecorder(rec, log.NewNullLogger(), track)

	var em *emulator.Emulator
	eng := sim.New(sim.Options{Ticks: 2, OnRelease: func(key string) { em.DriveReleased(key) }})
	em = emulator.New(eng,
		emulator.WithDelegate(r),
		emulator.WithObserver(emulator.ObserverFunc(func(n emulator.Notification) {
			if n.Name == emulator.RunningProcessChanged && n.Emulator.IsRunningProcess() && onProgram != nil {
				onProgram()
			}
		})),
	)
	require.NoError(t, em.BindDrive("C", drive.Handle{Kind: drive.KindDirectory, Source: dir}))

	for _, line := range lines {
		r.command(line)
		em.Enqueue(line, shell.DisplayEncoding)
	}
	em.Start(context.Background())
	return rec, r
}

func TestSessionRecorder_RecordsSession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "KEEN4.EXE"), []byte("MZ"), 0644))

	saves := 0
	rec, r := runSession(t, dir, true, []string{"C:", "KEEN4", "KEEN4", "EXIT"}, func() {
		saves++
		require.NoError(t, os.WriteFile(filepath.Join(dir, "SAVEGAM1.CK4"), []byte{byte(saves)}, 0644))
	})

	assert.Equal(t, session.StatusStopped, rec.Status)
	assert.Equal(t, session.ExitNormal, rec.ExitReason)
	assert.Empty(t, rec.Error)
	require.NotNil(t, rec.StoppedAt)
	assert.Equal(t, []string{"C:", "KEEN4", "KEEN4", "EXIT"}, rec.Commands)
	assert.Equal(t, []string{`C:\KEEN4.EXE`, `C:\KEEN4.EXE`}, rec.Programs)
	assert.Equal(t, []session.Drive{{Key: "C", Kind: "dir", Source: dir}}, rec.Drives)
	assert.NotEmpty(t, rec.Core)

	cs, err := r.result()
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, rec.ID, cs.SessionID)
	require.Len(t, cs.Drives, 1)
	assert.Equal(t, []changeset.Change{{Path: "SAVEGAM1.CK4", Type: changeset.Created, NewSize: 1}}, cs.Drives[0].Changes)
}

func TestSessionRecorder_NoTracking(t *testing.T) {
	dir := t.TempDir()
	_, r := runSession(t, dir, false, []string{"EXIT"}, nil)

	cs, err := r.result()
	assert.NoError(t, err)
	assert.Nil(t, cs)
}

func TestSessionRecorder_StartFailed(t *testing.T) {
	rec := session.NewRecord()
	r := newSessionRecorder(rec, log.NewNullLogger(), true)
	em := emulator.New(sim.New(sim.Options{}))

	failure := errors.New("no sound card")
	r.EmulatorWillStart(emulator.Notification{Name: emulator.WillStart, Emulator: em})
	assert.Equal(t, session.StatusRunning, rec.Status)

	r.EmulatorDidFinish(emulator.Notification{Name: emulator.StartFailed, Emulator: em, Err: failure})
	assert.Equal(t, session.StatusStopped, rec.Status)
	assert.Equal(t, session.ExitFailed, rec.ExitReason)
	assert.Equal(t, "no sound card", rec.Error)

	cs, err := r.result()
	assert.ErrorIs(t, err, failure)
	assert.Nil(t, cs)
}

func TestSessionRecorder_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := session.NewRecord()
	r := newSessionRecorder(rec, log.NewNullLogger(), false)
	em := emulator.New(sim.New(sim.Options{}), emulator.WithDelegate(r))
	require.NoError(t, em.BindDrive("C", drive.Handle{Kind: drive.KindDirectory, Source: dir}))
	em.Start(ctx)

	assert.Equal(t, session.ExitCancelled, rec.ExitReason)
	assert.Equal(t, session.StatusStopped, rec.Status)
}

func TestSessionRecorder_Save(t *testing.T) {
	store, err := session.NewStoreAt(t.TempDir())
	require.NoError(t, err)

	rec := session.NewRecord()
	r := newSessionRecorder(rec, log.NewNullLogger(), false)
	r.command("DIR")
	require.NoError(t, r.save(store))

	loaded, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"DIR"}, loaded.Commands)
}

func TestSessionRecorder_SaveSnapshots(t *testing.T) {
	store, err := session.NewStoreAt(t.TempDir())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "KEEN4.EXE"), []byte("MZ"), 0644))
	rec, r := runSession(t, dir, true, []string{"EXIT"}, nil)

	require.NoError(t, r.saveSnapshots(store))
	snap, err := changeset.Load(store.SnapshotPath(rec.ID, "C"))
	require.NoError(t, err)
	assert.Contains(t, snap, "KEEN4.EXE")
}

func TestSessionRecorder_SaveSnapshotsWithoutTracking(t *testing.T) {
	store, err := session.NewStoreAt(t.TempDir())
	require.NoError(t, err)

	rec, r := runSession(t, t.TempDir(), false, []string{"EXIT"}, nil)

	require.NoError(t, r.saveSnapshots(store))
	assert.NoFileExists(t, store.SnapshotPath(rec.ID, "C"))
}
