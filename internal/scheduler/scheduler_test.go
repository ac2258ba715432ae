package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/metrics"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	responses []*metrics.Snapshot
	errs      []error
	calls     int
}

func (f *fakeSource) Fetch(_ context.Context, _ []*coins.Coin) (*metrics.Snapshot, error) {
	i := f.calls
	f.calls++
	if f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

type fakeConverger struct {
	decisions  []Decision
	incumbents map[string]Incumbent
}

func (f *fakeConverger) Converge(_ context.Context, d Decision) {
	f.decisions = append(f.decisions, d)
}

func (f *fakeConverger) Incumbents() map[string]Incumbent {
	return f.incumbents
}

type fakeRecorder struct {
	decisions []Decision
	staleness []bool
	snapshots []*metrics.Snapshot
}

func (f *fakeRecorder) RecordSnapshot(snap *metrics.Snapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeRecorder) RecordDecision(d Decision, stale bool) error {
	f.decisions = append(f.decisions, d)
	f.staleness = append(f.staleness, stale)
	return nil
}

func TestCycleSkippedWithoutAnySnapshot(t *testing.T) {
	deck := testDeck(t)
	source := &fakeSource{errs: []error{errors.New("timeout")}}
	conv := &fakeConverger{}
	rec := &fakeRecorder{}

	s := NewScheduler(deck, NewEngine(deck, 0.2, time.Minute), source, conv, rec, time.Minute, nil, lib.NewTestLogger())
	s.runCycle(context.Background())

	require.Empty(t, conv.decisions, "no decision without any snapshot")
	require.Empty(t, rec.decisions)
}

func TestCycleReusesStaleSnapshot(t *testing.T) {
	deck := testDeck(t)
	snap := snapshotOf(map[string]float64{"ICX": 0.8, "BAT": 0.5})
	source := &fakeSource{
		responses: []*metrics.Snapshot{snap, nil},
		errs:      []error{nil, errors.New("timeout")},
	}
	conv := &fakeConverger{incumbents: map[string]Incumbent{}}
	rec := &fakeRecorder{}

	var reported []*metrics.Snapshot
	onCycleEnd := func(_ Decision, snap *metrics.Snapshot) {
		reported = append(reported, snap)
	}

	s := NewScheduler(deck, NewEngine(deck, 0.2, time.Minute), source, conv, rec, time.Minute, onCycleEnd, lib.NewTestLogger())

	s.runCycle(context.Background())
	require.Len(t, conv.decisions, 1)
	require.Equal(t, "ICX", conv.decisions[0].Assignments["gpu0"].Ticker)
	require.False(t, rec.staleness[0])
	require.False(t, reported[0].Stale)

	// second cycle degrades to the previous snapshot, flagged stale
	s.runCycle(context.Background())
	require.Len(t, conv.decisions, 2)
	require.Equal(t, "ICX", conv.decisions[1].Assignments["gpu0"].Ticker)
	require.True(t, rec.staleness[1])
	require.True(t, reported[1].Stale)

	// the stale snapshot is a copy; the original is untouched
	require.False(t, snap.Stale)

	// snapshots are only recorded when fresh
	require.Len(t, rec.snapshots, 1)
}

func TestSnapshotStaleTracksDegradation(t *testing.T) {
	deck := testDeck(t)
	snap := snapshotOf(map[string]float64{"ICX": 0.8})
	source := &fakeSource{
		responses: []*metrics.Snapshot{snap, nil, snapshotOf(map[string]float64{"ICX": 0.7})},
		errs:      []error{nil, errors.New("timeout"), nil},
	}
	conv := &fakeConverger{incumbents: map[string]Incumbent{}}

	s := NewScheduler(deck, NewEngine(deck, 0.2, time.Minute), source, conv, &fakeRecorder{}, time.Minute, nil, lib.NewTestLogger())

	require.False(t, s.SnapshotStale(), "fresh before any cycle")

	s.runCycle(context.Background())
	require.False(t, s.SnapshotStale())

	// degraded cycle: interval reports built between cycles must carry the flag
	s.runCycle(context.Background())
	require.True(t, s.SnapshotStale())

	// recovery clears it
	s.runCycle(context.Background())
	require.False(t, s.SnapshotStale())
}

func TestSnapshotStaleSetOnFirstFetchFailure(t *testing.T) {
	deck := testDeck(t)
	source := &fakeSource{errs: []error{errors.New("timeout")}}

	s := NewScheduler(deck, NewEngine(deck, 0.2, time.Minute), source, &fakeConverger{}, &fakeRecorder{}, time.Minute, nil, lib.NewTestLogger())
	s.runCycle(context.Background())

	require.True(t, s.SnapshotStale(), "no data at all is degraded data")
}

func TestCycleConvergesBeforeReporting(t *testing.T) {
	deck := testDeck(t)
	snap := snapshotOf(map[string]float64{"ICX": 0.8})
	source := &fakeSource{responses: []*metrics.Snapshot{snap}, errs: []error{nil}}
	conv := &fakeConverger{incumbents: map[string]Incumbent{}}
	rec := &fakeRecorder{}

	converged := false
	onCycleEnd := func(_ Decision, _ *metrics.Snapshot) {
		converged = len(conv.decisions) == 1
	}

	s := NewScheduler(deck, NewEngine(deck, 0.2, time.Minute), source, conv, rec, time.Minute, onCycleEnd, lib.NewTestLogger())
	s.runCycle(context.Background())

	require.True(t, converged, "report must be published after convergence")
}
