package metrics

import (
	"context"

	"github.com/minepilot/minepilot/internal/coins"
)

// Source supplies per-coin profitability signals. A failed fetch is
// recoverable: the caller reuses the previous snapshot flagged stale.
type Source interface {
	Fetch(ctx context.Context, coins []*coins.Coin) (*Snapshot, error)
}
