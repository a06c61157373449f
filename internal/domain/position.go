package domain

import "github.com/shopspring/decimal"

// PositionSide represents the direction of a trading position
type PositionSide int

const (
	// PositionSideLong represents a long position (buy to open)
	PositionSideLong PositionSide = iota
	// PositionSideShort represents a short position (sell to open)
	PositionSideShort
)

// String returns the string representation.
func (s PositionSide) String() string {
	if s == PositionSideShort {
		return "short"
	}
	return "long"
}

// Opposite returns the other side.
func (s PositionSide) Opposite() PositionSide {
	if s == PositionSideShort {
		return PositionSideLong
	}
	return PositionSideShort
}

// Positions open quantity per side, in base currency.
type Positions struct {
	Long  decimal.Decimal
	Short decimal.Decimal
}

// Quantity returns the open quantity for the side.
func (p Positions) Quantity(side PositionSide) decimal.Decimal {
	if side == PositionSideShort {
		return p.Short
	}
	return p.Long
}

// PositionState settled state of the account on the instrument.
type PositionState string

const (
	StateFlat  PositionState = "FLAT"
	StateLong  PositionState = "LONG"
	StateShort PositionState = "SHORT"
)
