package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// names of the fetches that make up a snapshot
const (
	FetchBalance   = "balance"
	FetchPrice     = "price"
	FetchPositions = "positions"
)

// MarketSnapshot account and market state used for a single decision.
type MarketSnapshot struct {
	// Balance available margin balance in quote currency.
	Balance decimal.Decimal
	// Price last traded price.
	Price decimal.Decimal
	// Positions open quantity per side.
	Positions Positions
	// FetchedAt time the fetches were started.
	FetchedAt time.Time
	// Missing fetches that failed while building the snapshot.
	Missing []string
}

// Complete reports whether every fetch succeeded.
func (s MarketSnapshot) Complete() bool {
	return len(s.Missing) == 0
}

// Has reports whether the named fetch succeeded.
func (s MarketSnapshot) Has(fetch string) bool {
	for _, m := range s.Missing {
		if m == fetch {
			return false
		}
	}
	return true
}

// PriceAvailable a zero or negative price means the price is unknown, never a real quote.
func (s MarketSnapshot) PriceAvailable() bool {
	return s.Has(FetchPrice) && s.Price.IsPositive()
}

// State derives FLAT/LONG/SHORT from the open quantities.
// During a reversal both sides may be briefly positive; long wins in that case.
func (s MarketSnapshot) State() PositionState {
	switch {
	case s.Positions.Long.IsPositive():
		return StateLong
	case s.Positions.Short.IsPositive():
		return StateShort
	default:
		return StateFlat
	}
}

// Age returns how old the snapshot is at now.
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
