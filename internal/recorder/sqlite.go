package recorder

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/metrics"
	"github.com/minepilot/minepilot/internal/scheduler"
	"github.com/minepilot/minepilot/internal/supervisor"
	"github.com/robfig/cron/v3"

	_ "modernc.org/sqlite"
)

var (
	ErrOpen    = errors.New("cannot open history database")
	ErrMigrate = errors.New("cannot migrate history database")
)

// SQLiteRecorder persists snapshots, decisions and slot events to a local
// SQLite file. Old rows are pruned on a cron schedule so the file stays
// bounded on an always-on rig.
type SQLiteRecorder struct {
	db        *sql.DB
	retention time.Duration
	cron      *cron.Cron
	mu        sync.Mutex
	log       interfaces.ILogger
}

func NewSQLiteRecorder(dbPath string, retention time.Duration, log interfaces.ILogger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, lib.WrapError(ErrOpen, err)
	}

	// WAL lets the dashboard read the file while we write
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, lib.WrapError(ErrOpen, err)
	}

	r := &SQLiteRecorder{
		db:        db,
		retention: retention,
		log:       log,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, lib.WrapError(ErrMigrate, err)
	}

	log.Infof("history database opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			ticker       TEXT NOT NULL,
			score        REAL,
			hashrate_ghs REAL,
			price        REAL,
			difficulty   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			slot_id   TEXT NOT NULL,
			ticker    TEXT,
			score     REAL,
			stale     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS slot_events (
			id        TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			slot_id   TEXT NOT NULL,
			ticker    TEXT,
			kind      TEXT NOT NULL,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slot_events_ts ON slot_events(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SchedulePrune starts periodic pruning on a cron schedule.
func (r *SQLiteRecorder) SchedulePrune(schedule string) error {
	r.cron = cron.New()
	_, err := r.cron.AddFunc(schedule, func() {
		if err := r.Prune(); err != nil {
			r.log.Warnf("history prune failed: %s", err)
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *SQLiteRecorder) RecordSnapshot(snap *metrics.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO snapshots (timestamp, ticker, score, hashrate_ghs, price, difficulty) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := snap.Time.Unix()
	for ticker, sample := range snap.Samples {
		if _, err := stmt.Exec(ts, ticker, sample.Score, sample.HashrateGHS, sample.Price, sample.Difficulty); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordDecision(d scheduler.Decision, stale bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO decisions (timestamp, slot_id, ticker, score, stale) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := d.Time.Unix()
	staleInt := 0
	if stale {
		staleInt = 1
	}
	for slotID, a := range d.Assignments {
		if _, err := stmt.Exec(ts, slotID, a.Ticker, a.Score, staleInt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordEvent(e supervisor.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(
		`INSERT INTO slot_events (id, timestamp, slot_id, ticker, kind, error) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time.Unix(), e.SlotID, e.Ticker, string(e.Kind), e.Err,
	)
	return err
}

// Prune deletes rows older than the retention window.
func (r *SQLiteRecorder) Prune() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.retention).Unix()
	for _, table := range []string{"snapshots", "decisions", "slot_events"} {
		if _, err := r.db.Exec(`DELETE FROM `+table+` WHERE timestamp < ?`, cutoff); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	if r.cron != nil {
		r.cron.Stop()
	}
	return r.db.Close()
}
