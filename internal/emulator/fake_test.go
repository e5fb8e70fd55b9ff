package emulator

import (
	"strings"

	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/engine"
)

// fakeEngine is a scripted engine. Typed lines are handled one per loop
// iteration:
//
//	RUN <guest path>  runs a program for two iterations
//	BATCH             runs a batch script for two iterations
//	EXIT              ends the run loop
//	anything else     returns straight to the prompt
type fakeEngine struct {
	events []string

	declared map[string][]drive.Binding
	applyErr map[string]error
	mountErr map[string]error
	initErr  error
	runErr   error

	profile   *engine.Profile
	settings  engine.Settings
	suspended []bool
	released  []string

	executed         []string
	executedAtPrompt []bool

	maxIterations int
	iterations    int
	onIteration   func(i int)
	betweenHooks  func(i int)
	stoppedBy     string

	hooks     engine.Hooks
	state     engine.ShellState
	input     []string
	busy      engine.ShellState
	busyTicks int
	exit      bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		declared: map[string][]drive.Binding{},
		applyErr: map[string]error{},
		mountErr: map[string]error{},
		settings: engine.Settings{Core: engine.CoreDynamic, FixedSpeed: 4000},
	}
}

func (f *fakeEngine) ApplyConfig(path string) ([]drive.Binding, error) {
	f.events = append(f.events, "apply:"+path)
	if err := f.applyErr[path]; err != nil {
		return nil, err
	}
	return f.declared[path], nil
}

func (f *fakeEngine) Init(p *engine.Profile) error {
	f.events = append(f.events, "init")
	f.profile = p
	return f.initErr
}

func (f *fakeEngine) Run(h engine.Hooks) error {
	f.events = append(f.events, "run")
	f.hooks = h

	limit := f.maxIterations
	if limit == 0 {
		limit = 50
	}

	f.setState(engine.ShellState{AtPrompt: true})
	for i := 0; i < limit; i++ {
		f.iterations++
		if h.HandleRunLoop() {
			f.stoppedBy = "run"
			return f.runErr
		}
		if f.betweenHooks != nil {
			f.betweenHooks(i)
		}
		if h.HandleEventLoop() {
			f.stoppedBy = "event"
			return f.runErr
		}
		if f.onIteration != nil {
			f.onIteration(i)
		}
		if f.exit {
			return f.runErr
		}
		f.step()
	}
	return f.runErr
}

func (f *fakeEngine) step() {
	if f.busyTicks > 0 {
		f.busyTicks--
		if f.busyTicks == 0 {
			f.setState(engine.ShellState{AtPrompt: true})
		}
		return
	}
	if len(f.input) == 0 {
		return
	}

	line := f.input[0]
	f.input = f.input[1:]
	f.setState(engine.ShellState{})

	switch {
	case line == "EXIT":
		f.exit = true
		return
	case strings.HasPrefix(line, "RUN "):
		path := strings.TrimPrefix(line, "RUN ")
		name := path[strings.LastIndex(path, `\`)+1:]
		f.busy = engine.ShellState{Program: &engine.Program{Name: name, GuestPath: path}}
		f.busyTicks = 2
		f.setState(f.busy)
		return
	case line == "BATCH":
		f.busy = engine.ShellState{InBatchScript: true}
		f.busyTicks = 2
		f.setState(f.busy)
		return
	}
	f.setState(engine.ShellState{AtPrompt: true})
}

func (f *fakeEngine) setState(s engine.ShellState) {
	f.state = s
	f.hooks.DidChangeEmulationState()
}

func (f *fakeEngine) Mount(key string, h drive.Handle) error {
	f.events = append(f.events, "mount:"+key)
	return f.mountErr[key]
}

func (f *fakeEngine) Shell() engine.ShellState {
	s := f.state
	if s.Program != nil {
		p := *s.Program
		s.Program = &p
	}
	return s
}

func (f *fakeEngine) Execute(line []byte) error {
	f.executed = append(f.executed, string(line))
	f.executedAtPrompt = append(f.executedAtPrompt, f.state.AtPrompt && f.busyTicks == 0)
	f.input = append(f.input, string(line))
	return nil
}

func (f *fakeEngine) SetSuspended(v bool) {
	f.suspended = append(f.suspended, v)
}

func (f *fakeEngine) ApplySettings(s engine.Settings) {
	f.events = append(f.events, "settings")
	f.settings = s
}

func (f *fakeEngine) Settings() engine.Settings {
	return f.settings
}

func (f *fakeEngine) ReleaseDrive(key string, h drive.Handle) {
	f.released = append(f.released, key)
}

// recorder collects notification names in order.
type recorder struct {
	names []Name
	errs  map[Name]error
}

func newRecorder() *recorder {
	return &recorder{errs: map[Name]error{}}
}

func (r *recorder) Notify(n Notification) {
	r.names = append(r.names, n.Name)
	if n.Err != nil {
		r.errs[n.Name] = n.Err
	}
}

func (r *recorder) count(name Name) int {
	c := 0
	for _, n := range r.names {
		if n == name {
			c++
		}
	}
	return c
}

func (r *recorder) index(name Name) int {
	for i, n := range r.names {
		if n == name {
			return i
		}
	}
	return -1
}

// onNotification returns an observer that calls fn for every notification
// named name.
func onNotification(name Name, fn func(e *Emulator)) Observer {
	return ObserverFunc(func(n Notification) {
		if n.Name == name {
			fn(n.Emulator)
		}
	})
}
