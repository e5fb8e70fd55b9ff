package sim

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/engine"
	lua "github.com/yuin/gopher-lua"
)

// configLibs are the standard Lua libraries available to configuration
// files. Nothing that touches the host is opened.
var configLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.StringLibName, lua.OpenString},
	{lua.TabLibName, lua.OpenTable},
	{lua.MathLibName, lua.OpenMath},
}

// configState collects what a configuration file declares. It is only
// committed to the engine if the whole file runs without error.
type configState struct {
	dir      string
	settings engine.Settings
	drives   []drive.Binding
	autoexec []string
}

// ApplyConfig runs the Lua configuration file at path. Files may call:
//
//	mount("C", "~/dos/c" [, "ro"])  bind a drive; relative paths are
//	                                resolved against the file's directory
//	core("dynamic")                 select the CPU core
//	cycles(3000) / cycles("max")    fixed or automatic speed
//	autospeed(true)
//	autoexec("C:")                  run a line at startup
//
// The declared drives are returned for the caller to bind.
func (e *Engine) ApplyConfig(path string) ([]drive.Binding, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range configLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("failed to open lua library %s: %w", lib.name, err)
		}
	}
	// No loading other files from a configuration
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	cs := &configState{dir: filepath.Dir(path), settings: e.settings}
	for name, fn := range cs.functions() {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", path, err)
	}

	e.settings = cs.settings
	e.autoexec = append(e.autoexec, cs.autoexec...)
	e.log.Debugf("applied %s: %d drives, %d autoexec lines", path, len(cs.drives), len(cs.autoexec))
	return cs.drives, nil
}

func (cs *configState) functions() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"mount":     cs.mount,
		"core":      cs.core,
		"cycles":    cs.cycles,
		"autospeed": cs.autospeed,
		"autoexec":  cs.autoexecLine,
	}
}

func (cs *configState) mount(L *lua.LState) int {
	letter := L.CheckString(1)
	source := L.CheckString(2)
	mode := strings.ToLower(L.OptString(3, ""))

	if !filepath.IsAbs(source) && !strings.HasPrefix(source, "~") {
		source = filepath.Join(cs.dir, source)
	}
	spec := letter + "=" + source
	switch mode {
	case "":
	case "ro", "rw":
		spec += ":" + mode
	default:
		L.ArgError(3, "mode must be \"ro\" or \"rw\"")
		return 0
	}

	b, err := drive.Parse(spec)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	cs.drives = append(cs.drives, b)
	return 0
}

func (cs *configState) core(L *lua.LState) int {
	c, err := engine.ParseCoreMode(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	cs.settings.Core = c
	return 0
}

func (cs *configState) cycles(L *lua.LState) int {
	switch v := L.Get(1).(type) {
	case lua.LNumber:
		f := float64(v)
		if math.IsNaN(f) {
			L.ArgError(1, "cycles must be a number")
			return 0
		}
		// Clamp before converting; int() of an out of range float is undefined
		f = math.Max(engine.MinFixedSpeed, math.Min(f, engine.MaxFixedSpeed))
		cs.settings.FixedSpeed = int(f)
		cs.settings.AutoSpeed = false
	case lua.LString:
		switch strings.ToLower(string(v)) {
		case "max", "auto":
			cs.settings.AutoSpeed = true
		default:
			L.ArgError(1, "expected a number, \"max\" or \"auto\"")
		}
	default:
		L.ArgError(1, "expected a number, \"max\" or \"auto\"")
	}
	return 0
}

func (cs *configState) autospeed(L *lua.LState) int {
	cs.settings.AutoSpeed = L.CheckBool(1)
	return 0
}

func (cs *configState) autoexecLine(L *lua.LState) int {
	cs.autoexec = append(cs.autoexec, L.CheckString(1))
	return 0
}
