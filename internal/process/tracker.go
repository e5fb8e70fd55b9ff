// Package process tracks the identity of the guest process the engine is
// currently running.
package process

import (
	"path"
	"strings"
	"sync"

	"github.com/boxer-emu/boxer/internal/engine"
)

// internalNames are the programs the engine provides itself.
var internalNames = []string{
	"DOSBOX",
	"COMMAND",
	"CONFIG",
	"IMGMOUNT",
	"INTRO",
	"KEYB",
	"LOADFIX",
	"LOADROM",
	"MEM",
	"MOUNT",
	"RESCAN",
	"BOOT",
}

// InternalNames returns the names of the engine-provided programs.
func InternalNames() []string {
	out := make([]string, len(internalNames))
	copy(out, internalNames)
	return out
}

// IsInternal reports whether name is an engine-provided program. The check is
// case-insensitive and ignores any directory and extension.
func IsInternal(name string) bool {
	if name == "" {
		return false
	}
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.ToUpper(strings.TrimSuffix(base, path.Ext(base)))
	for _, n := range internalNames {
		if base == n {
			return true
		}
	}
	return false
}

// Identity describes the running guest process. The zero value means no
// process is running.
type Identity struct {
	Name      string `json:"name,omitempty"`
	GuestPath string `json:"guest_path,omitempty"`
	HostPath  string `json:"host_path,omitempty"`
}

// Running reports whether the identity describes a running process.
func (id Identity) Running() bool {
	return id.Name != ""
}

// Internal reports whether the process is engine-provided.
func (id Identity) Internal() bool {
	return IsInternal(id.Name)
}

// Changes is a set of Identity fields that changed in a Resync.
type Changes uint8

const (
	NameChanged Changes = 1 << iota
	GuestPathChanged
	HostPathChanged
	RunningChanged
)

// Has reports whether all of f are set.
func (c Changes) Has(f Changes) bool {
	return c&f == f
}

// Resolver maps a guest path to its host path, or "" if it has none.
type Resolver func(guestPath string) string

// Tracker holds the current Identity. Reads and the Resync rebuild share one
// lock, so readers always see a complete triple.
type Tracker struct {
	mu      sync.RWMutex
	current Identity
	resolve Resolver
}

// NewTracker returns a Tracker. resolve may be nil.
func NewTracker(resolve Resolver) *Tracker {
	return &Tracker{resolve: resolve}
}

// Current returns the current identity.
func (t *Tracker) Current() Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Resync rebuilds the identity from the engine's program report and returns
// which fields changed. A nil program clears the identity.
func (t *Tracker) Resync(p *engine.Program) Changes {
	next := t.identityFor(p)

	t.mu.Lock()
	prev := t.current
	t.current = next
	t.mu.Unlock()

	var c Changes
	if prev.Name != next.Name {
		c |= NameChanged
	}
	if prev.GuestPath != next.GuestPath {
		c |= GuestPathChanged
	}
	if prev.HostPath != next.HostPath {
		c |= HostPathChanged
	}
	if prev.Running() != next.Running() {
		c |= RunningChanged
	}
	return c
}

func (t *Tracker) identityFor(p *engine.Program) Identity {
	if p == nil || p.Name == "" {
		return Identity{}
	}

	id := Identity{Name: p.Name, GuestPath: p.GuestPath}
	if id.GuestPath == "" {
		id.GuestPath = p.Name
	}
	if IsInternal(p.Name) {
		return id
	}

	id.HostPath = p.HostPath
	if id.HostPath == "" && t.resolve != nil {
		id.HostPath = t.resolve(id.GuestPath)
	}
	return id
}
