package coins

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/minepilot/minepilot/internal/lib"
	"gopkg.in/yaml.v3"
)

var (
	ErrDeckRead     = errors.New("cannot read coin deck file")
	ErrDeckParse    = errors.New("cannot parse coin deck file")
	ErrDeckInvalid  = errors.New("invalid coin deck")
	ErrEmptySet     = errors.New("coin set is empty")
	ErrUnknownSet   = errors.New("slot references unknown coin set")
	ErrUnknownCoin  = errors.New("coin set references unknown coin")
	ErrDupTicker    = errors.New("duplicate coin ticker")
	ErrDupSlot      = errors.New("duplicate slot id")
	ErrSetOverlap   = errors.New("coin belongs to more than one set")
	ErrNoSlots      = errors.New("no slots configured")
	ErrBadPool      = errors.New("invalid pool endpoint")
	ErrBadThreshold = errors.New("min_profitability must not be negative")
)

// Deck is the static coin configuration: the full coin list partitioned into
// named sets, plus the slots that mine from them.
type Deck struct {
	Coins []*Coin             `yaml:"coins"`
	Sets  map[string][]string `yaml:"coin_sets"`
	Slots []*Slot             `yaml:"slots"`

	byTicker map[string]*Coin
}

func LoadDeck(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lib.WrapError(ErrDeckRead, err)
	}

	deck := &Deck{}
	if err := yaml.Unmarshal(data, deck); err != nil {
		return nil, lib.WrapError(ErrDeckParse, err)
	}

	if err := deck.validate(); err != nil {
		return nil, lib.WrapError(ErrDeckInvalid, err)
	}

	return deck, nil
}

// NewDeck builds and validates a deck from already parsed parts.
func NewDeck(coinList []*Coin, sets map[string][]string, slots []*Slot) (*Deck, error) {
	deck := &Deck{
		Coins: coinList,
		Sets:  sets,
		Slots: slots,
	}
	if err := deck.validate(); err != nil {
		return nil, lib.WrapError(ErrDeckInvalid, err)
	}
	return deck, nil
}

func (d *Deck) validate() error {
	if len(d.Slots) == 0 {
		return ErrNoSlots
	}

	d.byTicker = make(map[string]*Coin, len(d.Coins))
	for _, c := range d.Coins {
		if _, ok := d.byTicker[c.Ticker]; ok {
			return fmt.Errorf("%w: %s", ErrDupTicker, c.Ticker)
		}
		if c.MinProfitability < 0 {
			return fmt.Errorf("%w: %s", ErrBadThreshold, c.Ticker)
		}
		u, err := url.Parse(c.Pool)
		if err != nil || u.Host == "" {
			return fmt.Errorf("%w: %s %q", ErrBadPool, c.Ticker, c.Pool)
		}
		d.byTicker[c.Ticker] = c
	}

	setOf := make(map[string]string) // ticker -> set name
	for name, tickers := range d.Sets {
		if len(tickers) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptySet, name)
		}
		for _, ticker := range tickers {
			if _, ok := d.byTicker[ticker]; !ok {
				return fmt.Errorf("%w: %s in set %s", ErrUnknownCoin, ticker, name)
			}
			if other, ok := setOf[ticker]; ok {
				return fmt.Errorf("%w: %s in %s and %s", ErrSetOverlap, ticker, other, name)
			}
			setOf[ticker] = name
		}
	}

	slotIDs := lib.NewSet()
	for _, s := range d.Slots {
		if slotIDs.Contains(s.ID) {
			return fmt.Errorf("%w: %s", ErrDupSlot, s.ID)
		}
		slotIDs.Add(s.ID)
		if _, ok := d.Sets[s.CoinSet]; !ok {
			return fmt.Errorf("%w: slot %s set %s", ErrUnknownSet, s.ID, s.CoinSet)
		}
	}

	return nil
}

// Coin returns the coin for a ticker, nil if not configured.
func (d *Deck) Coin(ticker string) *Coin {
	return d.byTicker[ticker]
}

// EligibleCoins returns the coins of a named set.
func (d *Deck) EligibleCoins(setName string) []*Coin {
	tickers := d.Sets[setName]
	eligible := make([]*Coin, 0, len(tickers))
	for _, t := range tickers {
		eligible = append(eligible, d.byTicker[t])
	}
	return eligible
}

// AllCoins returns every configured coin.
func (d *Deck) AllCoins() []*Coin {
	return d.Coins
}
