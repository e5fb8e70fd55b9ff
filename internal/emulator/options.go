package emulator

import (
	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/engine"
	"github.com/boxer-emu/boxer/internal/log"
)

// Option configures an Emulator.
type Option func(*Emulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(e *Emulator) {
		if l != nil {
			e.log = l
		}
	}
}

// WithProfile sets the game profile handed to the engine at init.
func WithProfile(p *engine.Profile) Option {
	return func(e *Emulator) { e.profile = p }
}

// WithDelegate registers d as an observer.
func WithDelegate(d Delegate) Option {
	return func(e *Emulator) {
		if d != nil {
			e.observers.add(delegateObserver{d: d})
		}
	}
}

// WithObserver registers o as an observer.
func WithObserver(o Observer) Option {
	return func(e *Emulator) {
		if o != nil {
			e.observers.add(o)
		}
	}
}

// WithSettings sets the CPU settings applied when the engine starts,
// overriding whatever the configuration files chose.
func WithSettings(s engine.Settings) Option {
	return func(e *Emulator) {
		s.FixedSpeed = engine.ClampSpeed(s.FixedSpeed)
		e.settings = s
		e.settingsDirty = true
	}
}

// WithCache uses c as the drive cache instead of a fresh one.
func WithCache(c *drive.Cache) Option {
	return func(e *Emulator) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithValidator checks every drive bound through the Emulator against v.
func WithValidator(v *drive.Validator) Option {
	return func(e *Emulator) { e.validator = v }
}
