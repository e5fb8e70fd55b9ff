package config

import (
	"fmt"
	"sync"

	"github.com/boxer-emu/boxer/internal/drive"
	"github.com/boxer-emu/boxer/internal/log"
)

// Source is one engine configuration file handed to the Loader.
type Source struct {
	Path                   string `json:"path"`
	AppliedAtOrBeforeStart bool   `json:"applied_at_or_before_start"`
}

// Applier parses an engine configuration file and reports the drives it declares.
type Applier interface {
	ApplyConfig(path string) ([]drive.Binding, error)
}

// Mounter makes a bound drive available to the engine.
type Mounter interface {
	Mount(key string, h drive.Handle) error
}

// Loader keeps the ordered, append-only list of configuration sources and
// delivers them to the engine. Drives declared by a source are bound into the
// cache and reach the engine through Sync.
type Loader struct {
	mu        sync.Mutex
	sources   []Source
	delivered int
	started   bool

	cache     *drive.Cache
	validator *drive.Validator
	log       log.Logger
}

// NewLoader creates a Loader binding declared drives into cache. validator may
// be nil, in which case declared drives are not checked.
func NewLoader(cache *drive.Cache, validator *drive.Validator, logger log.Logger) *Loader {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Loader{cache: cache, validator: validator, log: logger}
}

// Add appends a source. Sources added before MarkStarted are delivered by
// the next Flush, before the engine runs guest code. Later ones are only
// recorded: the engine has no way to take a configuration file mid-run.
func (l *Loader) Add(path string) Source {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Source{Path: path, AppliedAtOrBeforeStart: !l.started}
	l.sources = append(l.sources, s)
	return s
}

// MarkStarted records that the engine has begun starting up.
func (l *Loader) MarkStarted() {
	l.mu.Lock()
	l.started = true
	l.mu.Unlock()
}

// Sources returns a copy of all sources in the order they were added.
func (l *Loader) Sources() []Source {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Source, len(l.sources))
	copy(out, l.sources)
	return out
}

// Pending returns the number of sources the next Flush will deliver.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.sources[l.delivered:] {
		if s.AppliedAtOrBeforeStart {
			n++
		}
	}
	return n
}

// Flush delivers every undelivered source added before MarkStarted to a, in
// order. A source that fails does not stop the ones after it; its error is
// returned in the slice. Flush must only be called from the engine goroutine.
func (l *Loader) Flush(a Applier) []error {
	l.mu.Lock()
	var pending []Source
	for _, s := range l.sources[l.delivered:] {
		if s.AppliedAtOrBeforeStart {
			pending = append(pending, s)
		}
	}
	l.delivered = len(l.sources)
	l.mu.Unlock()

	var errs []error
	for _, s := range pending {
		l.log.Debugf("applying configuration %s", s.Path)
		bindings, err := a.ApplyConfig(s.Path)
		if err != nil {
			l.log.Errorf("failed to apply configuration %s: %v", s.Path, err)
			errs = append(errs, fmt.Errorf("failed to apply configuration %s: %w", s.Path, err))
			continue
		}
		for _, b := range bindings {
			if err := l.bind(b); err != nil {
				l.log.Errorf("%v", err)
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// Sync mounts every drive bound since the last Sync. Rebinding an existing
// key mounts the new handle over the old one.
func (l *Loader) Sync(m Mounter) []error {
	var errs []error
	for _, b := range l.cache.TakeDirty() {
		l.log.Debugf("mounting %s: %s", b.Key, b.Handle)
		if err := m.Mount(b.Key, b.Handle); err != nil {
			l.log.Errorf("failed to mount drive %s: %v", b.Key, err)
			errs = append(errs, fmt.Errorf("failed to mount drive %s: %w", b.Key, err))
		}
	}
	return errs
}

func (l *Loader) bind(b drive.Binding) error {
	key, err := drive.NormalizeKey(b.Key)
	if err != nil {
		return err
	}
	b.Key = key
	if l.validator != nil {
		if err := l.validator.Validate(b); err != nil {
			return err
		}
	}
	if prev, replaced := l.cache.Bind(b.Key, b.Handle); replaced {
		l.log.Debugf("drive %s rebound: %s -> %s", b.Key, prev, b.Handle)
	}
	return nil
}
