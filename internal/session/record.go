package session

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	StatusCreated = "created"
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Exit reasons.
const (
	ExitNormal    = "normal"
	ExitCancelled = "cancelled"
	ExitFailed    = "failed"
)

// Drive is a drive binding as recorded for a session.
type Drive struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Source   string `json:"source,omitempty"`
	ReadOnly bool   `json:"read_only"`
}

// Record is the persisted history of one emulator session.
type Record struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // "created", "running", "stopped"
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	ExitReason  string     `json:"exit_reason,omitempty"` // "normal" | "cancelled" | "failed"
	Error       string     `json:"error,omitempty"`
	ConfigFiles []string   `json:"config_files,omitempty"`
	Drives      []Drive    `json:"drives,omitempty"`
	Commands    []string   `json:"commands,omitempty"`
	Programs    []string   `json:"programs,omitempty"` // guest paths, in the order they ran
	Core        string     `json:"core,omitempty"`
	Cycles      int        `json:"cycles,omitempty"`
	AutoSpeed   bool       `json:"auto_speed,omitempty"`
}

// NewRecord returns a record for a session starting now.
func NewRecord() *Record {
	return &Record{
		ID:        uuid.New().String()[:8],
		Status:    StatusCreated,
		StartedAt: time.Now(),
	}
}

// Finish marks the record stopped. A non-nil err is recorded alongside the
// reason.
func (r *Record) Finish(reason string, err error) {
	now := time.Now()
	r.Status = StatusStopped
	r.StoppedAt = &now
	r.ExitReason = reason
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the session ran, or has been running as of now.
func (r *Record) Duration(now time.Time) time.Duration {
	if r.StoppedAt != nil {
		return r.StoppedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}
