package scheduler

import (
	"time"

	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/metrics"
	"golang.org/x/exp/slices"
)

// Assignment binds a slot to a coin within a Decision. An empty ticker means
// the slot should idle; it is a valid, degraded outcome, not an error.
type Assignment struct {
	Ticker string
	Score  float64
}

func (a Assignment) IsNone() bool {
	return a.Ticker == ""
}

// Incumbent is the currently running assignment of a slot as seen by the
// supervisor at the start of a cycle.
type Incumbent struct {
	Ticker    string
	StartedAt time.Time
}

// Decision is the immutable per-cycle output: one assignment per slot.
type Decision struct {
	Time        time.Time
	Assignments map[string]Assignment // keyed by slot id
}

// Engine converts a metric snapshot plus the static deck into a Decision.
type Engine struct {
	deck       *coins.Deck
	hysteresis float64
	minDwell   time.Duration
}

func NewEngine(deck *coins.Deck, hysteresisMargin float64, minDwell time.Duration) *Engine {
	return &Engine{
		deck:       deck,
		hysteresis: hysteresisMargin,
		minDwell:   minDwell,
	}
}

// Decide is a pure function of the snapshot, the incumbent state and the
// clock, so it can be replayed from recorded snapshots.
func (e *Engine) Decide(snap *metrics.Snapshot, incumbents map[string]Incumbent, now time.Time) Decision {
	d := Decision{
		Time:        now,
		Assignments: make(map[string]Assignment, len(e.deck.Slots)),
	}
	for _, slot := range e.deck.Slots {
		d.Assignments[slot.ID] = e.decideSlot(slot, snap, incumbents[slot.ID], now)
	}
	return d
}

type candidate struct {
	ticker string
	score  float64
}

func (e *Engine) decideSlot(slot *coins.Slot, snap *metrics.Snapshot, inc Incumbent, now time.Time) Assignment {
	cands := make([]candidate, 0, 8)
	for _, coin := range e.deck.EligibleCoins(slot.CoinSet) {
		sample, ok := snap.Sample(coin.Ticker)
		if !ok {
			continue
		}
		if sample.Score < coin.MinProfitability {
			continue
		}
		cands = append(cands, candidate{ticker: coin.Ticker, score: sample.Score})
	}

	// highest score first, ties broken by the smaller ticker for determinism
	slices.SortStableFunc(cands, func(a, b candidate) bool {
		if a.score != b.score {
			return a.score > b.score
		}
		return a.ticker < b.ticker
	})

	incScore, incQualified := e.incumbentScore(snap, inc)
	if !incQualified {
		// a disqualified incumbent may never be kept, dwell or not
		if len(cands) == 0 {
			return Assignment{}
		}
		return Assignment{Ticker: cands[0].ticker, Score: cands[0].score}
	}

	keep := Assignment{Ticker: inc.Ticker, Score: incScore}

	if len(cands) == 0 || cands[0].ticker == inc.Ticker {
		return keep
	}
	if now.Sub(inc.StartedAt) < e.minDwell {
		return keep
	}
	if cands[0].score-incScore > e.hysteresis {
		return Assignment{Ticker: cands[0].ticker, Score: cands[0].score}
	}
	return keep
}

func (e *Engine) incumbentScore(snap *metrics.Snapshot, inc Incumbent) (float64, bool) {
	if inc.Ticker == "" {
		return 0, false
	}
	coin := e.deck.Coin(inc.Ticker)
	if coin == nil {
		return 0, false
	}
	sample, ok := snap.Sample(inc.Ticker)
	if !ok || sample.Score < coin.MinProfitability {
		return 0, false
	}
	return sample.Score, true
}
