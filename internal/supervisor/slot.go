package supervisor

import (
	"sync"
	"time"

	"github.com/minepilot/minepilot/internal/lib"
)

// Slot is one unit of mining capacity. At most one live subprocess belongs to
// a slot at any instant. All fields below the mutex are guarded by it.
type Slot struct {
	id      string
	coinSet string

	mu        sync.Mutex
	state     SlotState
	ticker    string
	score     float64
	since     time.Time // last state transition
	startedAt time.Time // current assignment start
	proc      Process
	watcher   *lib.Task
}

func newSlot(id, coinSet string) *Slot {
	return &Slot{
		id:      id,
		coinSet: coinSet,
		state:   SlotStateIdle,
		since:   time.Now(),
	}
}

func (s *Slot) ID() string {
	return s.id
}

func (s *Slot) currentTicker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker
}

// SlotStatus is an immutable view of a slot handed to readers; the live slot
// is never exposed outside the supervisor.
type SlotStatus struct {
	SlotID    string
	Ticker    string
	State     SlotState
	Score     float64
	Since     time.Time
	StartedAt time.Time
}

func (s *Slot) status() SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SlotStatus{
		SlotID:    s.id,
		Ticker:    s.ticker,
		State:     s.state,
		Score:     s.score,
		Since:     s.since,
		StartedAt: s.startedAt,
	}
}
