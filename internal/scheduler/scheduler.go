package scheduler

import (
	"context"
	"time"

	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/metrics"
	"github.com/minepilot/minepilot/internal/prom"
	"go.uber.org/atomic"
)

// Converger makes live worker state match a Decision. Implemented by the
// supervisor.
type Converger interface {
	Converge(ctx context.Context, d Decision)
	Incumbents() map[string]Incumbent
}

// HistoryRecorder persists cycle outputs. Failures are logged by the
// implementation and never affect scheduling.
type HistoryRecorder interface {
	RecordSnapshot(snap *metrics.Snapshot) error
	RecordDecision(d Decision, stale bool) error
}

// Scheduler runs the recurring cycle: fetch -> decide -> converge -> record ->
// report. Decision computation completes before any convergence action, and
// convergence completes before the cycle report is published.
type Scheduler struct {
	deck       *coins.Deck
	engine     *Engine
	source     metrics.Source
	converger  Converger
	recorder   HistoryRecorder
	interval   time.Duration
	onCycleEnd func(d Decision, snap *metrics.Snapshot)

	lastSnap *metrics.Snapshot
	stale    atomic.Bool
	log      interfaces.ILogger
}

func NewScheduler(
	deck *coins.Deck,
	engine *Engine,
	source metrics.Source,
	converger Converger,
	recorder HistoryRecorder,
	interval time.Duration,
	onCycleEnd func(d Decision, snap *metrics.Snapshot),
	log interfaces.ILogger,
) *Scheduler {
	return &Scheduler{
		deck:       deck,
		engine:     engine,
		source:     source,
		converger:  converger,
		recorder:   recorder,
		interval:   interval,
		onCycleEnd: onCycleEnd,
		log:        log,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infof("scheduler started, cycle interval %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	prom.CyclesTotal.Inc()

	snap := s.fetchSnapshot(ctx)
	if snap == nil {
		// nothing ever fetched, leave current assignments untouched
		s.log.Warnf("no usable snapshot yet, skipping cycle")
		return
	}
	if ctx.Err() != nil {
		// cycle abandoned mid-flight, decision not computed so no side effects
		return
	}

	incumbents := s.converger.Incumbents()
	d := s.engine.Decide(snap, incumbents, time.Now())

	s.converger.Converge(ctx, d)

	if err := s.recorder.RecordDecision(d, snap.Stale); err != nil {
		s.log.Warnf("cannot record decision: %s", err)
	}

	if s.onCycleEnd != nil {
		s.onCycleEnd(d, snap)
	}
}

// SnapshotStale reports whether the last cycle ran on degraded data. Safe to
// call from other goroutines, reporters read it between cycles.
func (s *Scheduler) SnapshotStale() bool {
	return s.stale.Load()
}

// fetchSnapshot pulls fresh scores, degrading to the previous snapshot
// flagged stale when the source fails.
func (s *Scheduler) fetchSnapshot(ctx context.Context) *metrics.Snapshot {
	snap, err := s.source.Fetch(ctx, s.deck.AllCoins())
	if err != nil {
		prom.StaleSnapshotsTotal.Inc()
		s.stale.Store(true)
		if s.lastSnap == nil {
			s.log.Warnf("metric fetch failed, no previous snapshot: %s", err)
			return nil
		}
		s.log.Warnf("metric fetch failed, reusing snapshot from %s: %s", s.lastSnap.Time.Format(time.RFC3339), err)
		return s.lastSnap.AsStale()
	}

	s.stale.Store(false)
	s.lastSnap = snap
	if err := s.recorder.RecordSnapshot(snap); err != nil {
		s.log.Warnf("cannot record snapshot: %s", err)
	}
	return snap
}
