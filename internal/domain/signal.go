package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalAction direction requested by an alert.
type SignalAction string

const (
	SignalActionBuy  SignalAction = "buy"
	SignalActionSell SignalAction = "sell"
	SignalActionNone SignalAction = "none"
)

// MarketPosition position an alert expects after (or had before) execution.
type MarketPosition string

const (
	MarketPositionLong    MarketPosition = "long"
	MarketPositionShort   MarketPosition = "short"
	MarketPositionFlat    MarketPosition = "flat"
	MarketPositionUnknown MarketPosition = "unknown"
)

// Side maps long/short onto a position side. ok is false for flat and unknown.
func (p MarketPosition) Side() (side PositionSide, ok bool) {
	switch p {
	case MarketPositionLong:
		return PositionSideLong, true
	case MarketPositionShort:
		return PositionSideShort, true
	default:
		return PositionSideLong, false
	}
}

// SignalSource tells which parser produced a signal.
type SignalSource string

const (
	// SignalSourceStructured payload matched the webhook JSON schema.
	SignalSourceStructured SignalSource = "structured"
	// SignalSourceHeuristic payload was free-form text resolved by keywords.
	SignalSourceHeuristic SignalSource = "heuristic"
)

// Signal canonical trade alert.
type Signal struct {
	Action     SignalAction
	Desired    MarketPosition
	Previous   MarketPosition
	RawSize    decimal.Decimal
	Timeframe  string
	Price      decimal.Decimal
	ReceivedAt time.Time
	Source     SignalSource
}

// Actionable reports whether the signal resolved to a concrete target position.
// Heuristic parsing may produce signals that are not.
func (s Signal) Actionable() bool {
	if s.Action == SignalActionNone {
		return false
	}
	switch s.Desired {
	case MarketPositionLong, MarketPositionShort, MarketPositionFlat:
		return true
	default:
		return false
	}
}
