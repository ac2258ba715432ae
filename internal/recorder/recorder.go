package recorder

import (
	"github.com/minepilot/minepilot/internal/metrics"
	"github.com/minepilot/minepilot/internal/scheduler"
	"github.com/minepilot/minepilot/internal/supervisor"
)

// Recorder persists scheduling history for later analysis and replay.
// Recording failures are never fatal to the control loop.
type Recorder interface {
	RecordSnapshot(snap *metrics.Snapshot) error
	RecordDecision(d scheduler.Decision, stale bool) error
	RecordEvent(e supervisor.Event) error
	Prune() error
	Close() error
}

// Noop is used when no history database is configured.
type Noop struct{}

func (Noop) RecordSnapshot(*metrics.Snapshot) error        { return nil }
func (Noop) RecordDecision(scheduler.Decision, bool) error { return nil }
func (Noop) RecordEvent(supervisor.Event) error            { return nil }
func (Noop) Prune() error                                  { return nil }
func (Noop) Close() error                                  { return nil }
