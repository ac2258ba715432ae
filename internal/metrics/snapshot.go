package metrics

import "time"

// Sample is the profitability signal for a single coin.
type Sample struct {
	Score       float64 `json:"score"`
	HashrateGHS float64 `json:"hashrate_ghs"`
	Price       float64 `json:"price"`
	Difficulty  float64 `json:"difficulty"`
}

// Snapshot is an immutable capture of per-coin profitability. A snapshot is
// superseded by the next fetch, never mutated in place.
type Snapshot struct {
	Time    time.Time
	Stale   bool
	Samples map[string]Sample // keyed by ticker
}

func (s *Snapshot) Sample(ticker string) (Sample, bool) {
	sample, ok := s.Samples[ticker]
	return sample, ok
}

// AsStale returns a stale-flagged copy sharing the sample map. Used when a
// fetch fails and the previous snapshot is reused.
func (s *Snapshot) AsStale() *Snapshot {
	return &Snapshot{
		Time:    s.Time,
		Stale:   true,
		Samples: s.Samples,
	}
}
