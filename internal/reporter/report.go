package reporter

import (
	"time"

	"github.com/minepilot/minepilot/internal/supervisor"
)

// Report is the dashboard payload: the full slot picture at one instant.
type Report struct {
	Timestamp time.Time    `json:"timestamp"`
	Stale     bool         `json:"stale"`
	Slots     []SlotReport `json:"slots"`
}

type SlotReport struct {
	SlotID string    `json:"slot_id"`
	Ticker string    `json:"ticker,omitempty"` // empty when idle
	State  string    `json:"state"`
	Score  float64   `json:"score"`
	Since  time.Time `json:"since"`
}

// BuildReport converts supervisor slot statuses into a report payload.
func BuildReport(statuses []supervisor.SlotStatus, stale bool) *Report {
	r := &Report{
		Timestamp: time.Now(),
		Stale:     stale,
		Slots:     make([]SlotReport, 0, len(statuses)),
	}
	for _, st := range statuses {
		r.Slots = append(r.Slots, SlotReport{
			SlotID: st.SlotID,
			Ticker: st.Ticker,
			State:  st.State.String(),
			Score:  st.Score,
			Since:  st.Since,
		})
	}
	return r
}
