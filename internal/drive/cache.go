package drive

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Releaser is implemented by whatever holds references to bound drives
// (normally the engine). ReleaseDrive must not block; the releaser calls
// Cache.Released once it has actually let go of the handle.
type Releaser interface {
	ReleaseDrive(key string, h Handle)
}

type entry struct {
	handle Handle
	dirty  bool
}

// Cache maps drive letters to their backing handles. It is safe for
// concurrent use by the host and engine goroutines.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	releasing map[string][]Handle
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:   make(map[string]*entry),
		releasing: make(map[string][]Handle),
	}
}

// Bind associates key with h, replacing any previous binding. The binding is
// marked dirty until the next TakeDirty. It returns the replaced handle, if any.
func (c *Cache) Bind(key string, h Handle) (prev Handle, replaced bool) {
	key = strings.ToUpper(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		prev, replaced = old.handle, true
	}
	c.entries[key] = &entry{handle: h, dirty: true}
	return prev, replaced
}

// Lookup returns the live binding for key. Bindings that are being released
// are not returned.
func (c *Cache) Lookup(key string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[strings.ToUpper(key)]
	if !ok {
		return Handle{}, false
	}
	return e.handle, true
}

// Bindings returns a copy of all live bindings sorted by key.
func (c *Cache) Bindings() []Binding {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Binding, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, Binding{Key: k, Handle: e.handle})
	}
	sortBindings(out)
	return out
}

// TakeDirty returns the bindings changed since the last call, sorted by key,
// and clears their dirty mark.
func (c *Cache) TakeDirty() []Binding {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Binding
	for k, e := range c.entries {
		if !e.dirty {
			continue
		}
		e.dirty = false
		out = append(out, Binding{Key: k, Handle: e.handle})
	}
	sortBindings(out)
	return out
}

// UnbindAll removes every live binding. With a nil releaser the bindings are
// discarded at once. Otherwise each one moves to the releasing set and r is
// asked to release it; the handle is only discarded when r reports back via
// Released. UnbindAll never waits for that acknowledgement. It returns the
// number of bindings removed.
func (c *Cache) UnbindAll(r Releaser) int {
	c.mu.Lock()
	removed := make([]Binding, 0, len(c.entries))
	for k, e := range c.entries {
		removed = append(removed, Binding{Key: k, Handle: e.handle})
		if r != nil {
			c.releasing[k] = append(c.releasing[k], e.handle)
		}
	}
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	if r == nil {
		return len(removed)
	}

	// Called outside the lock: the releaser may call Released synchronously.
	sortBindings(removed)
	for _, b := range removed {
		r.ReleaseDrive(b.Key, b.Handle)
	}
	return len(removed)
}

// Released completes the release handshake for the oldest pending release of key.
func (c *Cache) Released(key string) {
	key = strings.ToUpper(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.releasing[key]
	if len(pending) <= 1 {
		delete(c.releasing, key)
		return
	}
	c.releasing[key] = pending[1:]
}

// Releasing returns the keys whose release has not been acknowledged yet.
func (c *Cache) Releasing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.releasing))
	for k := range c.releasing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HostPath resolves a DOS path such as `C:\GAMES\DOOM.EXE` to the host path
// it lives at. It returns "" when the drive is unbound, not backed by a
// host directory, or the path climbs out of the drive root.
func (c *Cache) HostPath(guestPath string) string {
	letter, rest, ok := strings.Cut(guestPath, ":")
	if !ok || len(letter) != 1 {
		return ""
	}

	h, ok := c.Lookup(letter)
	if !ok || h.Kind != KindDirectory || h.Source == "" {
		return ""
	}

	rest = strings.TrimLeft(strings.ReplaceAll(rest, `\`, "/"), "/")
	if rest == "" {
		return h.Source
	}
	p := filepath.Join(h.Source, filepath.FromSlash(rest))
	rel, err := filepath.Rel(h.Source, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return p
}

func sortBindings(b []Binding) {
	sort.Slice(b, func(i, j int) bool { return b[i].Key < b[j].Key })
}
