// Package emulator is the host-side controller of an embedded emulation
// engine. It owns the session lifecycle, feeds queued shell commands and
// configuration to the engine at its loop checkpoints, and mirrors the
// engine's shell state for the host.
package emulator

import (
	"context"
	"sync"

	"github.com/boxer-emu/boxer/internal/config"
	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/boxer-emu/boxer/internal/log"
	"github.com/boxer-emu/boxer/internal/process"
	"github.com/boxer-emu/boxer/internal/shell"
)

// Emulator controls one engine session. Start runs the engine on the calling
// goroutine; every other method may be called from any goroutine.
type Emulator struct {
	eng       engine.Engine
	log       log.Logger
	profile   *engine.Profile
	validator *drive.Validator

	queue     *shell.Queue
	cache     *drive.Cache
	loader    *config.Loader
	tracker   *process.Tracker
	observers observerList

	mu             sync.Mutex
	started        bool
	executing      bool
	cancelled      bool
	stopped        bool
	interrupted    bool
	suspended      bool // last value passed to the engine
	atPrompt       bool
	inBatch        bool
	awaitingPrompt bool
	settings       engine.Settings
	settingsDirty  bool
}

// New creates an idle Emulator for eng.
func New(eng engine.Engine, opts ...Option) *Emulator {
	e := &Emulator{
		eng:      eng,
		log:      log.NewNullLogger(),
		queue:    shell.NewQueue(),
		settings: engine.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = drive.NewCache()
	}
	e.loader = config.NewLoader(e.cache, e.validator, e.log)
	e.tracker = process.NewTracker(e.cache.HostPath)
	return e
}

// Start runs the engine until its loop ends or the session is cancelled.
// The calling goroutine becomes the engine goroutine. Start does nothing
// unless the Emulator is idle. Cancelling ctx is equivalent to Cancel.
func (e *Emulator) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.cancelled {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	e.post(WillStart, nil)
	e.loader.MarkStarted()
	e.applyConfig()

	if err := e.eng.Init(e.profile); err != nil {
		e.log.Errorf("failed to initialize engine: %v", err)
		e.mu.Lock()
		e.stopped = true
		e.mu.Unlock()
		e.post(StartFailed, err)
		return
	}

	e.syncDrives()
	e.syncSettings()

	e.mu.Lock()
	e.executing = true
	e.mu.Unlock()
	e.log.Infof("engine started")
	e.post(DidStart, nil)

	err := e.eng.Run(&bridge{e: e, ctx: ctx})
	if err != nil {
		e.log.Errorf("engine stopped with error: %v", err)
	}

	e.mu.Lock()
	e.executing = false
	wasInterrupted := e.interrupted
	e.interrupted = false
	if !e.cancelled {
		e.stopped = true
	}
	e.mu.Unlock()

	if wasInterrupted {
		e.post(InterruptedChanged, nil)
	}
	e.resync(engine.ShellState{})

	if n := e.cache.UnbindAll(e.eng); n > 0 {
		e.log.Debugf("released %d drives", n)
	}
	e.log.Infof("engine finished")
	e.post(DidFinish, err)
}

// Cancel asks the engine to stop at its next checkpoint. It never blocks and
// only the first call has any effect. Once the run has stopped on its own,
// Cancel does nothing.
func (e *Emulator) Cancel() {
	e.mu.Lock()
	if e.cancelled || e.stopped {
		e.mu.Unlock()
		return
	}
	e.cancelled = true
	e.mu.Unlock()

	e.log.Debugf("cancel requested")
	e.post(Cancelled, nil)
}

// WillPause tells the Emulator the host is about to stop servicing the
// engine's events. It has no effect unless the engine is executing.
func (e *Emulator) WillPause() {
	e.setInterrupted(true)
}

// DidResume undoes WillPause.
func (e *Emulator) DidResume() {
	e.setInterrupted(false)
}

func (e *Emulator) setInterrupted(v bool) {
	e.mu.Lock()
	if !e.executing || e.cancelled || e.interrupted == v {
		e.mu.Unlock()
		return
	}
	e.interrupted = v
	e.mu.Unlock()

	e.post(InterruptedChanged, nil)
}

// ApplyConfigurationAtPath adds an engine configuration file. Files added
// before Start are all applied, in order, before the engine initializes.
// Files added later are recorded in ConfigFiles but have no effect.
func (e *Emulator) ApplyConfigurationAtPath(path string) {
	if path == "" {
		return
	}
	s := e.loader.Add(path)
	e.log.Debugf("queued configuration %s (before start: %t)", s.Path, s.AppliedAtOrBeforeStart)
}

// Enqueue adds a command to be typed into the guest shell once it is at the
// prompt. Commands with an unknown encoding are ignored.
func (e *Emulator) Enqueue(text string, enc shell.Encoding) {
	if !enc.Valid() {
		e.log.Errorf("ignoring command with unknown encoding %s", enc)
		return
	}
	e.queue.Enqueue(text, enc)
}

// Launch queues the commands that switch to the program's drive and
// directory and run it.
func (e *Emulator) Launch(guestPath, args string) error {
	commands, err := shell.LaunchCommands(guestPath, args)
	if err != nil {
		return err
	}
	for _, c := range commands {
		e.queue.Enqueue(c.Text, c.Encoding)
	}
	return nil
}

// BindDrive binds h to the drive letter key. The engine sees the binding at
// start, or at its next run-loop checkpoint when already running.
func (e *Emulator) BindDrive(key string, h drive.Handle) error {
	key, err := drive.NormalizeKey(key)
	if err != nil {
		return err
	}
	b := drive.Binding{Key: key, Handle: h}
	if e.validator != nil {
		if err := e.validator.Validate(b); err != nil {
			return err
		}
	}
	if prev, replaced := e.cache.Bind(key, h); replaced {
		e.log.Debugf("drive %s rebound: %s -> %s", key, prev, h)
	}
	return nil
}

// DriveReleased acknowledges that the engine has let go of drive key after
// the run.
func (e *Emulator) DriveReleased(key string) {
	e.cache.Released(key)
}

// SetCoreMode selects the CPU core. Unknown modes are ignored.
func (e *Emulator) SetCoreMode(c engine.CoreMode) {
	if c < engine.CoreNormal || c > engine.CoreFull {
		return
	}
	e.updateSettings(func(s *engine.Settings) { s.Core = c })
}

// SetFixedSpeed sets the fixed CPU speed, clamped to the supported range, and
// turns off automatic speed.
func (e *Emulator) SetFixedSpeed(speed int) {
	e.updateSettings(func(s *engine.Settings) {
		s.FixedSpeed = engine.ClampSpeed(speed)
		s.AutoSpeed = false
	})
}

// SetAutoSpeed switches between automatic maximum speed and the fixed speed.
func (e *Emulator) SetAutoSpeed(auto bool) {
	e.updateSettings(func(s *engine.Settings) { s.AutoSpeed = auto })
}

func (e *Emulator) updateSettings(fn func(s *engine.Settings)) {
	e.mu.Lock()
	fn(&e.settings)
	e.settingsDirty = true
	e.mu.Unlock()
}

// State returns the lifecycle state.
func (e *Emulator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.cancelled:
		return StateCancelled
	case e.stopped:
		return StateStopped
	case e.executing && e.interrupted:
		return StateInterrupted
	case e.executing:
		return StateExecuting
	default:
		return StateIdle
	}
}

func (e *Emulator) IsExecuting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executing
}

func (e *Emulator) IsCancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

func (e *Emulator) IsInterrupted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interrupted
}

// IsAtPrompt reports whether the shell is idle at the prompt.
func (e *Emulator) IsAtPrompt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.atPrompt
}

// IsInBatchScript reports whether the shell is running a batch file.
func (e *Emulator) IsInBatchScript() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inBatch
}

// Process returns the identity of the running guest process.
func (e *Emulator) Process() process.Identity {
	return e.tracker.Current()
}

// IsRunningProcess reports whether a guest process is running.
func (e *Emulator) IsRunningProcess() bool {
	return e.tracker.Current().Running()
}

// ProcessIsInternal reports whether the running process is engine-provided.
// It is false when nothing is running.
func (e *Emulator) ProcessIsInternal() bool {
	return e.tracker.Current().Internal()
}

func (e *Emulator) ProcessName() string {
	return e.tracker.Current().Name
}

func (e *Emulator) ProcessPath() string {
	return e.tracker.Current().GuestPath
}

// ProcessLocalPath is the host path of the running program, or "" when it
// runs from an image or internal drive.
func (e *Emulator) ProcessLocalPath() string {
	return e.tracker.Current().HostPath
}

// ConfigFiles returns the configuration sources in the order they were added.
func (e *Emulator) ConfigFiles() []config.Source {
	return e.loader.Sources()
}

// PendingCommands returns the commands not yet typed into the shell.
func (e *Emulator) PendingCommands() []shell.Command {
	return e.queue.Pending()
}

// Drives returns the current drive bindings.
func (e *Emulator) Drives() []drive.Binding {
	return e.cache.Bindings()
}

// ReleasingDrives returns the drives handed back to the engine after the run
// whose release it has not acknowledged yet.
func (e *Emulator) ReleasingDrives() []string {
	return e.cache.Releasing()
}

func (e *Emulator) GameProfile() *engine.Profile {
	return e.profile
}

// Settings returns the CPU settings, as last requested or as reported by
// the engine.
func (e *Emulator) Settings() engine.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// applyConfig delivers pending configuration sources. Engine goroutine only.
func (e *Emulator) applyConfig() {
	if e.loader.Pending() == 0 {
		return
	}
	for _, err := range e.loader.Flush(e.eng) {
		e.post(ConfigFailed, err)
	}
}

// syncDrives mounts drives bound since the last sync. Engine goroutine only.
func (e *Emulator) syncDrives() {
	for _, err := range e.loader.Sync(e.eng) {
		e.post(ConfigFailed, err)
	}
}

// syncSettings hands changed settings to the engine, or picks up the
// engine's own when nothing was requested. Engine goroutine only.
func (e *Emulator) syncSettings() {
	e.mu.Lock()
	if !e.settingsDirty {
		e.settings = e.eng.Settings()
		e.mu.Unlock()
		return
	}
	s := e.settings
	e.settingsDirty = false
	e.mu.Unlock()

	e.log.Debugf("applying settings: core=%s cycles=%d auto=%t", s.Core, s.FixedSpeed, s.AutoSpeed)
	e.eng.ApplySettings(s)
}

// resync rebuilds the cached shell state and posts one notification per
// property that changed.
func (e *Emulator) resync(st engine.ShellState) {
	e.mu.Lock()
	changes := e.tracker.Resync(st.Program)
	promptChanged := e.atPrompt != st.AtPrompt
	batchChanged := e.inBatch != st.InBatchScript
	e.atPrompt = st.AtPrompt
	e.inBatch = st.InBatchScript
	if st.AtPrompt {
		e.awaitingPrompt = false
	}
	e.mu.Unlock()

	if changes.Has(process.NameChanged) {
		e.post(ProcessNameChanged, nil)
	}
	if changes.Has(process.GuestPathChanged) {
		e.post(ProcessPathChanged, nil)
	}
	if changes.Has(process.HostPathChanged) {
		e.post(ProcessLocalPathChanged, nil)
	}
	if changes.Has(process.RunningChanged) {
		e.post(RunningProcessChanged, nil)
	}
	if promptChanged {
		e.post(AtPromptChanged, nil)
	}
	if batchChanged {
		e.post(InBatchScriptChanged, nil)
	}
}
