package emulator

import "sync"

// Name identifies a notification.
type Name string

// Property change notifications. Each is posted at most once per state resync.
const (
	ProcessNameChanged      Name = "processName"
	ProcessPathChanged      Name = "processPath"
	ProcessLocalPathChanged Name = "processLocalPath"
	RunningProcessChanged   Name = "isRunningProcess"
	AtPromptChanged         Name = "isAtPrompt"
	InBatchScriptChanged    Name = "isInBatchScript"
	InterruptedChanged      Name = "isInterrupted"
)

// Lifecycle notifications.
const (
	WillStart    Name = "willStart"
	DidStart     Name = "didStart"
	DidFinish    Name = "didFinish"
	StartFailed  Name = "startFailed"
	Cancelled    Name = "cancelled"
	ConfigFailed Name = "configFailed"
)

// Notification is delivered to observers. Err is set for StartFailed,
// ConfigFailed, and for DidFinish when the engine loop returned an error.
type Notification struct {
	Name     Name
	Emulator *Emulator
	Err      error
}

// Observer receives notifications synchronously on the goroutine that
// caused them: the engine goroutine for everything posted by hooks, the
// caller's goroutine for Cancel, WillPause and DidResume. Observers may call
// the Emulator's query methods but must not block.
type Observer interface {
	Notify(n Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(n Notification)

func (f ObserverFunc) Notify(n Notification) { f(n) }

// Delegate is the narrow owner interface of an Emulator.
type Delegate interface {
	EmulatorWillStart(n Notification)
	EmulatorDidStart(n Notification)
	// EmulatorDidFinish is called after the engine loop ends and after a
	// failed start.
	EmulatorDidFinish(n Notification)
	// EmulatorStateChanged receives every other notification.
	EmulatorStateChanged(n Notification)
}

type delegateObserver struct {
	d Delegate
}

func (o delegateObserver) Notify(n Notification) {
	switch n.Name {
	case WillStart:
		o.d.EmulatorWillStart(n)
	case DidStart:
		o.d.EmulatorDidStart(n)
	case DidFinish, StartFailed:
		o.d.EmulatorDidFinish(n)
	default:
		o.d.EmulatorStateChanged(n)
	}
}

type observerList struct {
	mu      sync.Mutex
	nextID  int
	entries []observerEntry
}

type observerEntry struct {
	id int
	o  Observer
}

func (l *observerList) add(o Observer) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, observerEntry{id: id, o: o})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *observerList) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *observerList) snapshot() []Observer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Observer, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.o
	}
	return out
}

// Subscribe registers o and returns a function that unregisters it.
func (e *Emulator) Subscribe(o Observer) (unsubscribe func()) {
	return e.observers.add(o)
}

// post is the single emission point. It must be called without e.mu held.
func (e *Emulator) post(name Name, err error) {
	n := Notification{Name: name, Emulator: e, Err: err}
	for _, o := range e.observers.snapshot() {
		o.Notify(n)
	}
}
