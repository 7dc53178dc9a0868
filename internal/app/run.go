package app

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Run tracks one CLI invocation. Its ID tags every log line the invocation
// writes, so a clean can be traced from scan to undo in sc.log.
type Run struct {
	ID      string
	Command string
	Started time.Time
	Status  string // "success" or "error"
}

// NewRun creates a run with a fresh ULID, sortable by start time.
func NewRun(command string, now time.Time) *Run {
	return &Run{
		ID:      ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Command: command,
		Started: now,
		Status:  "success",
	}
}

// Fail marks the run as failed.
func (r *Run) Fail() {
	r.Status = "error"
}

// Duration returns the time elapsed since the run started.
func (r *Run) Duration(now time.Time) time.Duration {
	return now.Sub(r.Started)
}
