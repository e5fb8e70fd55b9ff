// Package engine defines the contract between the session controller and an
// embedded emulation core. The core owns its run loop; it calls back into the
// controller through Hooks at every iteration.
package engine

import (
	"github.com/boxer-emu/boxer/internal/drive"
)

// Hooks are invoked by the engine from its own goroutine. Implementations
// must not block.
type Hooks interface {
	// HandleEventLoop is called on every iteration of the engine's event
	// polling loop. Returning true aborts the loop.
	HandleEventLoop() bool

	// HandleRunLoop is called on every iteration of the outer execution loop.
	// Returning true short-circuits the whole run loop.
	HandleRunLoop() bool

	// DidChangeEmulationState is called whenever the shell reaches or leaves
	// the prompt, a process starts or stops, or a batch script is entered or
	// exited.
	DidChangeEmulationState()
}

// Program describes the guest process the shell is running.
type Program struct {
	Name      string // e.g. "KEEN4.EXE"
	GuestPath string // e.g. `C:\GAMES\KEEN\KEEN4.EXE`
	HostPath  string // "" when the program lives on an image or internal drive
}

// ShellState is a snapshot of the engine's shell, read on the engine goroutine.
type ShellState struct {
	AtPrompt      bool
	InBatchScript bool
	Program       *Program // nil when no process is running
}

// Engine is an emulation core. Apart from Init and Run, every method is
// called only from within Hooks callbacks, i.e. on the engine goroutine.
type Engine interface {
	// ApplyConfig parses the configuration file at path into the engine's
	// configuration state and returns the drives it declares.
	ApplyConfig(path string) ([]drive.Binding, error)

	// Init prepares the engine to run. A non-nil error means the engine
	// cannot start.
	Init(profile *Profile) error

	// Run executes the engine loop until it exits or a hook asks it to stop.
	Run(hooks Hooks) error

	// Mount makes h available under key, replacing any existing drive.
	Mount(key string, h drive.Handle) error

	// Shell returns the current shell state.
	Shell() ShellState

	// Execute types a command line into the shell. Once the line has been
	// handled the engine reports the shell back at the prompt through
	// DidChangeEmulationState.
	Execute(line []byte) error

	// SetSuspended tells the engine the host is not servicing its event loop,
	// so audio and other time-sensitive output should be muted.
	SetSuspended(suspended bool)

	// ApplySettings changes CPU core and speed settings.
	ApplySettings(s Settings)

	// Settings returns the CPU settings currently in effect, including any
	// set by configuration files.
	Settings() Settings

	// ReleaseDrive drops the engine's reference to a drive after the run.
	// The engine acknowledges through the callback it was given at
	// construction; it must not block.
	drive.Releaser
}
