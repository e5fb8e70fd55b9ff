// Package sim is a small deterministic engine with a DOS-like shell. It runs
// in-process on the goroutine that calls Run and drives the controller's
// hooks the way a real emulation core would.
package sim

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/boxer-emu/boxer/internal/log"
	"golang.org/x/text/encoding/charmap"
)

// ErrNotInitialized is returned when the engine is used before Init.
var ErrNotInitialized = errors.New("engine not initialized")

// internalDrive is where the engine's own programs live.
const internalDrive = "Z"

const defaultTicks = 3

// Options configures an Engine.
type Options struct {
	// Output receives console text. Defaults to io.Discard.
	Output io.Writer
	Logger log.Logger
	// ShowPrompt prints the DOS prompt whenever the shell is ready.
	ShowPrompt bool
	// Ticks is how many loop iterations a program runs for.
	Ticks int
	// Idle is slept on loop iterations with nothing to do.
	Idle time.Duration
	// OnRelease is called once a drive handed to ReleaseDrive is let go.
	OnRelease func(key string)
}

// Engine implements engine.Engine. Apart from Execute and Shell, which the
// controller calls from hooks, it is only used from the goroutine running it.
type Engine struct {
	opts Options
	log  log.Logger
	out  io.Writer

	settings engine.Settings
	autoexec []string

	initialized bool
	drives      map[string]drive.Handle
	cwd         map[string]string // per drive, e.g. `\GAMES`
	current     string

	hooks     engine.Hooks
	state     engine.ShellState
	input     [][]byte
	batch     []string
	ticks     int
	exit      bool
	suspended bool
}

// New creates an engine with only the internal Z: drive.
func New(opts Options) *Engine {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNullLogger()
	}
	if opts.Ticks <= 0 {
		opts.Ticks = defaultTicks
	}
	return &Engine{
		opts:     opts,
		log:      opts.Logger,
		out:      opts.Output,
		settings: engine.DefaultSettings(),
		drives: map[string]drive.Handle{
			internalDrive: {Kind: drive.KindInternal, Label: "INTERNAL"},
		},
		cwd:     map[string]string{internalDrive: `\`},
		current: internalDrive,
	}
}

// Init prepares the engine. Profile hints may override the speed with
// "cycles" and the core with "core".
func (e *Engine) Init(profile *engine.Profile) error {
	if e.initialized {
		return errors.New("engine already initialized")
	}
	if profile != nil {
		if err := e.applyHints(profile.Hints); err != nil {
			return fmt.Errorf("failed to apply profile %s: %w", profile.Identifier, err)
		}
	}
	e.initialized = true
	e.log.Debugf("engine initialized: core=%s cycles=%d auto=%t", e.settings.Core, e.settings.FixedSpeed, e.settings.AutoSpeed)
	return nil
}

func (e *Engine) applyHints(hints map[string]string) error {
	if v, ok := hints["core"]; ok {
		core, err := engine.ParseCoreMode(v)
		if err != nil {
			return err
		}
		e.settings.Core = core
	}
	if v, ok := hints["cycles"]; ok {
		if err := e.setCycles(v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) setCycles(v string) error {
	switch strings.ToLower(v) {
	case "max", "auto":
		e.settings.AutoSpeed = true
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fmt.Errorf("invalid cycles %q", v)
	}
	e.settings.FixedSpeed = engine.ClampSpeed(n)
	e.settings.AutoSpeed = false
	return nil
}

// Run executes the shell loop until EXIT or until a hook stops it. The
// autoexec lines from configuration run first as a batch script.
func (e *Engine) Run(hooks engine.Hooks) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	e.hooks = hooks
	defer func() { e.hooks = nil }()

	if len(e.autoexec) > 0 {
		e.startBatch(e.autoexec)
	} else {
		e.prompt()
	}

	for !e.exit {
		if hooks.HandleRunLoop() {
			break
		}
		if hooks.HandleEventLoop() {
			break
		}
		if !e.step() && e.opts.Idle > 0 {
			time.Sleep(e.opts.Idle)
		}
	}
	return nil
}

// step advances the shell by one unit of work and reports whether there was
// any.
func (e *Engine) step() bool {
	if e.suspended {
		return false
	}

	switch {
	case e.ticks > 0:
		e.ticks--
		if e.ticks == 0 {
			e.endProgram()
		}
		return true

	case len(e.batch) > 0:
		line := e.batch[0]
		e.batch = e.batch[1:]
		e.run(line)
		if len(e.batch) == 0 && e.ticks == 0 && !e.exit {
			e.endBatch()
		}
		return true

	case len(e.input) > 0 && e.state.AtPrompt:
		line := decode(e.input[0])
		e.input = e.input[1:]
		e.setState(engine.ShellState{})
		e.run(line)
		if e.ticks == 0 && !e.state.InBatchScript && !e.exit {
			e.prompt()
		}
		return true
	}
	return false
}

func decode(b []byte) string {
	s, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func (e *Engine) setState(s engine.ShellState) {
	e.state = s
	if e.hooks != nil {
		e.hooks.DidChangeEmulationState()
	}
}

func (e *Engine) prompt() {
	if e.opts.ShowPrompt {
		fmt.Fprintf(e.out, "\n%s>", e.cwdPath())
	}
	e.setState(engine.ShellState{AtPrompt: true})
}

func (e *Engine) startBatch(lines []string) {
	e.batch = append([]string(nil), lines...)
	e.setState(engine.ShellState{InBatchScript: true})
}

func (e *Engine) endBatch() {
	e.batch = nil
	e.prompt()
}

func (e *Engine) startProgram(p engine.Program) {
	e.ticks = e.opts.Ticks
	e.log.Debugf("running %s", p.GuestPath)
	e.setState(engine.ShellState{InBatchScript: e.state.InBatchScript, Program: &p})
}

func (e *Engine) endProgram() {
	if e.state.InBatchScript && len(e.batch) > 0 {
		e.setState(engine.ShellState{InBatchScript: true})
		return
	}
	e.batch = nil
	e.prompt()
}

// Execute queues a line typed at the prompt.
func (e *Engine) Execute(line []byte) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	e.input = append(e.input, append([]byte(nil), line...))
	return nil
}

// Shell returns a copy of the shell state.
func (e *Engine) Shell() engine.ShellState {
	s := e.state
	if s.Program != nil {
		p := *s.Program
		s.Program = &p
	}
	return s
}

// Mount makes h available as drive key. Directory and image sources must
// exist on the host.
func (e *Engine) Mount(key string, h drive.Handle) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	key, err := drive.NormalizeKey(key)
	if err != nil {
		return err
	}
	if key == internalDrive {
		return fmt.Errorf("drive %s is reserved", internalDrive)
	}

	if h.Kind != drive.KindInternal {
		info, err := os.Stat(h.Source)
		if err != nil {
			return fmt.Errorf("failed to access %s: %w", h.Source, err)
		}
		if h.Kind == drive.KindDirectory && !info.IsDir() {
			return fmt.Errorf("%s is not a directory", h.Source)
		}
		if h.Kind.IsImage() && info.IsDir() {
			return fmt.Errorf("%s is a directory, not an image", h.Source)
		}
	}

	e.drives[key] = h
	e.cwd[key] = `\`
	e.log.Debugf("drive %s is now %s", key, h)
	return nil
}

// Drive returns the handle mounted as key.
func (e *Engine) Drive(key string) (drive.Handle, bool) {
	h, ok := e.drives[strings.ToUpper(key)]
	return h, ok
}

// ReleaseDrive unmounts key if it still refers to h and acknowledges through
// Options.OnRelease.
func (e *Engine) ReleaseDrive(key string, h drive.Handle) {
	if cur, ok := e.drives[key]; ok && cur == h {
		delete(e.drives, key)
		delete(e.cwd, key)
		if e.current == key {
			e.current = internalDrive
		}
	}
	if e.opts.OnRelease != nil {
		e.opts.OnRelease(key)
	}
}

// SetSuspended freezes running programs while the host is not servicing
// events.
func (e *Engine) SetSuspended(suspended bool) {
	e.suspended = suspended
}

func (e *Engine) ApplySettings(s engine.Settings) {
	s.FixedSpeed = engine.ClampSpeed(s.FixedSpeed)
	e.settings = s
}

func (e *Engine) Settings() engine.Settings {
	return e.settings
}
