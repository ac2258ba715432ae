package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_cycles_total",
		Help: "Scheduling cycles run",
	})
	StaleSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_stale_snapshots_total",
		Help: "Cycles that had to reuse a previous metric snapshot",
	})
	SwitchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_switches_total",
		Help: "Slot assignment changes applied by the supervisor",
	})
	SpawnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_worker_spawns_total",
		Help: "Miner subprocesses launched",
	})
	CrashesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_worker_crashes_total",
		Help: "Miner subprocesses that exited unexpectedly",
	})
	ReportsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_reports_sent_total",
		Help: "Dashboard reports delivered",
	})
	ReportsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minepilot_reports_dropped_total",
		Help: "Dashboard reports dropped after retries or queue overflow",
	})
	SlotScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "minepilot_slot_score",
		Help: "Profitability score of the coin currently assigned to a slot",
	}, []string{"slot"})
)
