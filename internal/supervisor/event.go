package supervisor

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventStarting     EventKind = "starting"
	EventRunning      EventKind = "running"
	EventStopped      EventKind = "stopped"
	EventCrashed      EventKind = "crashed"
	EventLaunchFailed EventKind = "launch_failed"
)

// Event surfaces a slot state transition to the reporter and the recorder.
type Event struct {
	ID     string
	Time   time.Time
	SlotID string
	Ticker string
	Kind   EventKind
	Err    string
}

func newEvent(slotID, ticker string, kind EventKind, err error) Event {
	e := Event{
		ID:     uuid.NewString(),
		Time:   time.Now(),
		SlotID: slotID,
		Ticker: ticker,
		Kind:   kind,
	}
	if err != nil {
		e.Err = err.Error()
	}
	return e
}
