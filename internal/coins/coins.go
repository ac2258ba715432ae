package coins

// Coin is a configured mining target. Immutable after the deck is loaded.
type Coin struct {
	Ticker           string  `yaml:"ticker"`
	Algorithm        string  `yaml:"algorithm"`
	Pool             string  `yaml:"pool"`
	Wallet           string  `yaml:"wallet"`
	Worker           string  `yaml:"worker"`
	MinProfitability float64 `yaml:"min_profitability"`
}

// Slot is a logical unit of mining capacity bound to one named coin set.
type Slot struct {
	ID      string `yaml:"id"`
	CoinSet string `yaml:"coin_set"`
}
