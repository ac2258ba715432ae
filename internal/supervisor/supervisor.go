package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/prom"
	"github.com/minepilot/minepilot/internal/scheduler"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Supervisor owns the slot map and is its only writer. It makes live
// subprocess state match the latest Decision and watches subprocess health.
type Supervisor struct {
	slots *lib.Collection[*Slot]
	order []string // slot ids in deck order

	deck          *coins.Deck
	runner        Runner
	gracePeriod   time.Duration
	confirmWindow time.Duration
	onEvent       func(Event)

	log interfaces.ILogger
}

func NewSupervisor(
	deck *coins.Deck,
	runner Runner,
	gracePeriod time.Duration,
	confirmWindow time.Duration,
	onEvent func(Event),
	log interfaces.ILogger,
) *Supervisor {
	s := &Supervisor{
		slots:         lib.NewCollection[*Slot](),
		deck:          deck,
		runner:        runner,
		gracePeriod:   gracePeriod,
		confirmWindow: confirmWindow,
		onEvent:       onEvent,
		log:           log,
	}
	for _, slotCfg := range deck.Slots {
		s.slots.Store(newSlot(slotCfg.ID, slotCfg.CoinSet))
		s.order = append(s.order, slotCfg.ID)
	}
	return s
}

// Run blocks until the context is cancelled, then gracefully terminates every
// live subprocess within the grace period.
func (s *Supervisor) Run(ctx context.Context) error {
	<-ctx.Done()
	s.log.Infof("supervisor shutting down, stopping workers")
	s.stopAll()
	return ctx.Err()
}

// Incumbents returns the current assignment per slot for slots with a live
// subprocess. Consumed by the decision engine at the start of a cycle.
func (s *Supervisor) Incumbents() map[string]scheduler.Incumbent {
	incumbents := make(map[string]scheduler.Incumbent)
	s.slots.Range(func(slot *Slot) bool {
		slot.mu.Lock()
		if slot.state == SlotStateStarting || slot.state == SlotStateRunning {
			incumbents[slot.id] = scheduler.Incumbent{
				Ticker:    slot.ticker,
				StartedAt: slot.startedAt,
			}
		}
		slot.mu.Unlock()
		return true
	})
	return incumbents
}

// StatusSnapshot returns immutable slot views sorted by slot id.
func (s *Supervisor) StatusSnapshot() []SlotStatus {
	statuses := make([]SlotStatus, 0, len(s.order))
	s.slots.Range(func(slot *Slot) bool {
		statuses = append(statuses, slot.status())
		return true
	})
	slices.SortStableFunc(statuses, func(a, b SlotStatus) bool {
		return a.SlotID < b.SlotID
	})
	return statuses
}

// Converge diffs the decision against current assignments. Unchanged slots
// are left untouched: a restart costs a pool reconnect and ramp-up penalty.
// Changed slots converge concurrently, slots being independent resources.
func (s *Supervisor) Converge(ctx context.Context, d scheduler.Decision) {
	g := new(errgroup.Group)

	for _, slotID := range s.order {
		slot, ok := s.slots.Load(slotID)
		if !ok {
			continue
		}
		want := d.Assignments[slotID]
		cur := slot.currentTicker()

		if cur == want.Ticker {
			if !want.IsNone() {
				slot.mu.Lock()
				slot.score = want.Score
				slot.mu.Unlock()
				prom.SlotScore.WithLabelValues(slotID).Set(want.Score)
			}
			continue
		}

		g.Go(func() error {
			s.switchSlot(ctx, slot, want)
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Supervisor) switchSlot(ctx context.Context, slot *Slot, want scheduler.Assignment) {
	prom.SwitchesTotal.Inc()

	slot.mu.Lock()
	hasProc := slot.proc != nil
	slot.mu.Unlock()

	if hasProc {
		s.stopSlot(slot)
	}
	if !want.IsNone() {
		s.startSlot(ctx, slot, want)
	}
}

func (s *Supervisor) stopSlot(slot *Slot) {
	slot.mu.Lock()
	proc := slot.proc
	watcher := slot.watcher
	ticker := slot.ticker
	if proc == nil {
		slot.mu.Unlock()
		return
	}
	slot.state = SlotStateStopping
	slot.since = time.Now()
	slot.mu.Unlock()

	// detach the watcher first so the expected exit is not taken for a crash
	if watcher != nil {
		<-watcher.Stop()
	}

	s.log.Infof("stopping %s on slot %s", ticker, slot.id)
	proc.Stop(s.gracePeriod)

	s.clearSlot(slot)
	s.emit(newEvent(slot.id, ticker, EventStopped, nil))
}

func (s *Supervisor) startSlot(ctx context.Context, slot *Slot, want scheduler.Assignment) {
	// a convergence racing shutdown may reach here after stopAll already ran;
	// spawning now would orphan the subprocess
	if ctx.Err() != nil {
		return
	}

	coin := s.deck.Coin(want.Ticker)
	if coin == nil {
		s.log.Errorf("decision assigned unknown coin %s to slot %s", want.Ticker, slot.id)
		return
	}

	now := time.Now()
	slot.mu.Lock()
	slot.state = SlotStateStarting
	slot.ticker = want.Ticker
	slot.score = want.Score
	slot.since = now
	slot.startedAt = now
	slot.mu.Unlock()

	s.log.Infof("starting %s on slot %s (score %.3f)", want.Ticker, slot.id, want.Score)
	s.emit(newEvent(slot.id, want.Ticker, EventStarting, nil))

	proc, err := s.runner.Start(ctx, coin)
	if err != nil {
		s.log.Warnf("launch failed for %s on slot %s: %s", want.Ticker, slot.id, err)
		prom.CrashesTotal.Inc()

		slot.mu.Lock()
		slot.state = SlotStateCrashed
		slot.since = time.Now()
		slot.mu.Unlock()

		s.emit(newEvent(slot.id, want.Ticker, EventLaunchFailed, err))
		s.clearSlot(slot)
		return
	}

	prom.SpawnsTotal.Inc()
	prom.SlotScore.WithLabelValues(slot.id).Set(want.Score)

	watcher := lib.NewTaskFunc(func(ctx context.Context) error {
		return s.watch(ctx, slot, proc)
	})

	slot.mu.Lock()
	slot.proc = proc
	slot.watcher = watcher
	slot.mu.Unlock()

	watcher.Start(ctx)
}

// watch confirms the subprocess stayed alive through the confirmation window
// and then waits for its exit. An exit outside the stop path is a crash.
func (s *Supervisor) watch(ctx context.Context, slot *Slot, proc Process) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-proc.Done():
		s.handleExit(slot, proc)
		return nil
	case <-time.After(s.confirmWindow):
	}

	slot.mu.Lock()
	var ticker string
	if slot.state == SlotStateStarting {
		slot.state = SlotStateRunning
		slot.since = time.Now()
		ticker = slot.ticker
	}
	slot.mu.Unlock()

	if ticker != "" {
		s.log.Infof("%s confirmed running on slot %s", ticker, slot.id)
		s.emit(newEvent(slot.id, ticker, EventRunning, nil))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-proc.Done():
		s.handleExit(slot, proc)
		return nil
	}
}

// handleExit marks an unexpected subprocess exit: RUNNING -> CRASHED, failure
// event, then IDLE. Restart is deferred to the next cycle, which may choose a
// different coin.
func (s *Supervisor) handleExit(slot *Slot, proc Process) {
	slot.mu.Lock()
	if slot.state == SlotStateStopping {
		// expected exit, the stop path owns the transition
		slot.mu.Unlock()
		return
	}
	slot.state = SlotStateCrashed
	slot.since = time.Now()
	ticker := slot.ticker
	slot.mu.Unlock()

	exitErr := proc.Err()
	s.log.Warnf("worker for %s on slot %s exited unexpectedly: %v", ticker, slot.id, exitErr)
	prom.CrashesTotal.Inc()

	// the event is emitted while the slot still reads CRASHED, so the crash
	// is visible on the dashboard at least once
	s.emit(newEvent(slot.id, ticker, EventCrashed, exitErr))

	s.clearSlot(slot)
}

func (s *Supervisor) clearSlot(slot *Slot) {
	slot.mu.Lock()
	slot.state = SlotStateIdle
	slot.ticker = ""
	slot.score = 0
	slot.since = time.Now()
	slot.proc = nil
	slot.watcher = nil
	slot.mu.Unlock()

	prom.SlotScore.WithLabelValues(slot.id).Set(0)
}

func (s *Supervisor) stopAll() {
	wg := sync.WaitGroup{}
	s.slots.Range(func(slot *Slot) bool {
		wg.Add(1)
		go func(slot *Slot) {
			defer wg.Done()
			s.stopSlot(slot)
		}(slot)
		return true
	})
	wg.Wait()
}

func (s *Supervisor) emit(e Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}
