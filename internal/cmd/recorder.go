package cmd

import (
	"sync"

	"github.com/boxer-emu/boxer/internal/changeset"
	"github.com/boxer-emu/boxer/internal/emulator"
	"github.com/boxer-emu/boxer/internal/log"
	"github.com/boxer-emu/boxer/internal/session"
)

// sessionRecorder is the emulator delegate for `boxer run`. It fills in the
// session record and takes the change-tracking snapshots around the run.
type sessionRecorder struct {
	mu  sync.Mutex
	rec *session.Record
	log log.Logger

	track    bool
	tracker  *changeset.Tracker
	changes  *changeset.SessionChangeset
	lastProg string
	err      error
}

func newSessionRecorder(rec *session.Record, logger log.Logger, track bool) *sessionRecorder {
	return &sessionRecorder{rec: rec, log: logger, track: track}
}

// command records a line queued for the guest.
func (r *sessionRecorder) command(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.Commands = append(r.rec.Commands, line)
}

func (r *sessionRecorder) EmulatorWillStart(n emulator.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.Status = session.StatusRunning
}

func (r *sessionRecorder) EmulatorDidStart(n emulator.Notification) {
	em := n.Emulator
	bindings := em.Drives()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.Drives = r.rec.Drives[:0]
	for _, b := range bindings {
		r.rec.Drives = append(r.rec.Drives, session.Drive{
			Key:      b.Key,
			Kind:     b.Handle.Kind.String(),
			Source:   b.Handle.Source,
			ReadOnly: b.Handle.ReadOnly,
		})
	}

	if !r.track {
		return
	}
	tracker, errs := changeset.Begin(bindings)
	for _, err := range errs {
		r.log.Errorf("%v", err)
	}
	r.tracker = tracker
}

func (r *sessionRecorder) EmulatorDidFinish(n emulator.Notification) {
	em := n.Emulator
	settings := em.Settings()
	sources := em.ConfigFiles()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = n.Err
	r.rec.ConfigFiles = r.rec.ConfigFiles[:0]
	for _, s := range sources {
		r.rec.ConfigFiles = append(r.rec.ConfigFiles, s.Path)
	}
	r.rec.Core = settings.Core.String()
	r.rec.Cycles = settings.FixedSpeed
	r.rec.AutoSpeed = settings.AutoSpeed

	switch {
	case n.Name == emulator.StartFailed || n.Err != nil:
		r.rec.Finish(session.ExitFailed, n.Err)
	case em.IsCancelled():
		r.rec.Finish(session.ExitCancelled, nil)
	default:
		r.rec.Finish(session.ExitNormal, nil)
	}

	if r.tracker != nil {
		cs, errs := r.tracker.Finish(r.rec.ID)
		for _, err := range errs {
			r.log.Errorf("%v", err)
		}
		r.changes = cs
	}
}

func (r *sessionRecorder) EmulatorStateChanged(n emulator.Notification) {
	switch n.Name {
	case emulator.RunningProcessChanged, emulator.ProcessPathChanged:
		if !n.Emulator.IsRunningProcess() {
			r.mu.Lock()
			r.lastProg = ""
			r.mu.Unlock()
			return
		}
		path := n.Emulator.ProcessPath()
		r.mu.Lock()
		if path != r.lastProg {
			r.lastProg = path
			r.rec.Programs = append(r.rec.Programs, path)
		}
		r.mu.Unlock()
	case emulator.ConfigFailed:
		r.log.Errorf("configuration error: %v", n.Err)
	}
}

// saveSnapshots writes the start-of-session drive snapshots to store.
func (r *sessionRecorder) saveSnapshots(store *session.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tracker == nil {
		return nil
	}
	id := r.rec.ID
	return r.tracker.SaveSnapshots(func(key string) string { return store.SnapshotPath(id, key) })
}

// save writes the record to store.
func (r *sessionRecorder) save(store *session.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return store.Save(r.rec)
}

// result returns the changeset, if one was taken, and the session error.
func (r *sessionRecorder) result() (*changeset.SessionChangeset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes, r.err
}
