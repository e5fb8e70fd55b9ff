package engine

import (
	"fmt"
	"strings"
)

// CoreMode selects the CPU emulation core.
type CoreMode int

const (
	CoreUnknown CoreMode = -1
	CoreNormal  CoreMode = 0
	CoreDynamic CoreMode = 1
	CoreSimple  CoreMode = 2
	CoreFull    CoreMode = 3
)

func (c CoreMode) String() string {
	switch c {
	case CoreNormal:
		return "normal"
	case CoreDynamic:
		return "dynamic"
	case CoreSimple:
		return "simple"
	case CoreFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseCoreMode parses a core name as used in configuration files.
// "auto" maps to CoreDynamic.
func ParseCoreMode(s string) (CoreMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return CoreNormal, nil
	case "dynamic", "auto":
		return CoreDynamic, nil
	case "simple":
		return CoreSimple, nil
	case "full":
		return CoreFull, nil
	default:
		return CoreUnknown, fmt.Errorf("unknown cpu core %q", s)
	}
}

// Settings are the CPU speed controls of the engine.
type Settings struct {
	Core       CoreMode
	FixedSpeed int  // cycles per millisecond when AutoSpeed is false
	AutoSpeed  bool // run at maximum speed
}

const (
	MinFixedSpeed     = 50
	MaxFixedSpeed     = 500000
	DefaultFixedSpeed = 3000
)

// DefaultSettings returns normal core at the default fixed speed.
func DefaultSettings() Settings {
	return Settings{Core: CoreNormal, FixedSpeed: DefaultFixedSpeed}
}

// ClampSpeed limits a fixed speed to the supported range.
func ClampSpeed(speed int) int {
	switch {
	case speed < MinFixedSpeed:
		return MinFixedSpeed
	case speed > MaxFixedSpeed:
		return MaxFixedSpeed
	default:
		return speed
	}
}

// Profile carries opaque tuning hints for a particular game.
type Profile struct {
	Identifier string
	Hints      map[string]string
}
