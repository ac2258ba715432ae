package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/metrics"
	"github.com/minepilot/minepilot/internal/scheduler"
	"github.com/minepilot/minepilot/internal/supervisor"
	"github.com/stretchr/testify/require"
)

func openTestRecorder(t *testing.T, retention time.Duration) *SQLiteRecorder {
	t.Helper()
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), retention, lib.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func countRows(t *testing.T, rec *SQLiteRecorder, table string) int {
	t.Helper()
	var n int
	require.NoError(t, rec.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestRecordSnapshot(t *testing.T) {
	rec := openTestRecorder(t, time.Hour)

	snap := &metrics.Snapshot{
		Time: time.Now(),
		Samples: map[string]metrics.Sample{
			"ICX": {Score: 0.81, HashrateGHS: 1.2, Price: 0.14, Difficulty: 9000},
			"BAT": {Score: 0.44, HashrateGHS: 0.9, Price: 0.21, Difficulty: 4100},
		},
	}
	require.NoError(t, rec.RecordSnapshot(snap))
	require.Equal(t, 2, countRows(t, rec, "snapshots"))

	var score float64
	require.NoError(t, rec.db.QueryRow(`SELECT score FROM snapshots WHERE ticker = 'ICX'`).Scan(&score))
	require.InDelta(t, 0.81, score, 1e-9)
}

func TestRecordDecision(t *testing.T) {
	rec := openTestRecorder(t, time.Hour)

	d := scheduler.Decision{
		Time: time.Now(),
		Assignments: map[string]scheduler.Assignment{
			"gpu0": {Ticker: "ICX", Score: 0.81},
			"gpu1": {}, // idle
		},
	}
	require.NoError(t, rec.RecordDecision(d, true))
	require.Equal(t, 2, countRows(t, rec, "decisions"))

	var stale int
	require.NoError(t, rec.db.QueryRow(`SELECT stale FROM decisions WHERE slot_id = 'gpu0'`).Scan(&stale))
	require.Equal(t, 1, stale)
}

func TestRecordEvent(t *testing.T) {
	rec := openTestRecorder(t, time.Hour)

	e := supervisor.Event{
		ID:     uuid.NewString(),
		Time:   time.Now(),
		SlotID: "gpu0",
		Ticker: "ICX",
		Kind:   supervisor.EventCrashed,
		Err:    "exit status 137",
	}
	require.NoError(t, rec.RecordEvent(e))

	var kind, errMsg string
	require.NoError(t, rec.db.QueryRow(`SELECT kind, error FROM slot_events WHERE id = ?`, e.ID).Scan(&kind, &errMsg))
	require.Equal(t, "crashed", kind)
	require.Equal(t, "exit status 137", errMsg)
}

func TestPruneRemovesOldRows(t *testing.T) {
	rec := openTestRecorder(t, time.Hour)

	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()

	require.NoError(t, rec.RecordSnapshot(&metrics.Snapshot{
		Time:    old,
		Samples: map[string]metrics.Sample{"ICX": {Score: 0.5}},
	}))
	require.NoError(t, rec.RecordSnapshot(&metrics.Snapshot{
		Time:    fresh,
		Samples: map[string]metrics.Sample{"ICX": {Score: 0.6}},
	}))
	require.NoError(t, rec.RecordDecision(scheduler.Decision{
		Time:        old,
		Assignments: map[string]scheduler.Assignment{"gpu0": {Ticker: "ICX", Score: 0.5}},
	}, false))

	require.NoError(t, rec.Prune())

	require.Equal(t, 1, countRows(t, rec, "snapshots"))
	require.Equal(t, 0, countRows(t, rec, "decisions"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	rec := openTestRecorder(t, time.Hour)
	require.NoError(t, rec.migrate())
	require.NoError(t, rec.migrate())
}

func TestNoopRecorder(t *testing.T) {
	n := Noop{}
	require.NoError(t, n.RecordSnapshot(&metrics.Snapshot{}))
	require.NoError(t, n.RecordDecision(scheduler.Decision{}, false))
	require.NoError(t, n.RecordEvent(supervisor.Event{}))
	require.NoError(t, n.Prune())
	require.NoError(t, n.Close())
}
