package emulator

// State is the lifecycle state of an Emulator.
type State int

const (
	StateIdle        State = iota // created, not yet started
	StateExecuting                // engine loop running
	StateInterrupted              // running, host not servicing events
	StateCancelled                // cancel requested; terminal
	StateStopped                  // run ended or failed to start; terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExecuting:
		return "executing"
	case StateInterrupted:
		return "interrupted"
	case StateCancelled:
		return "cancelled"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateStopped
}
