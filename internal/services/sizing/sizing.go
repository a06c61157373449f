// Package sizing computes order quantities from account balance.
package sizing

import "github.com/shopspring/decimal"

// Params inputs of a sizing decision.
type Params struct {
	// Balance available margin in quote currency.
	Balance decimal.Decimal
	// Price last traded price.
	Price decimal.Decimal
	// Leverage multiplier applied to committed capital.
	Leverage decimal.Decimal
	// CapitalFraction share of the balance committed, in (0, 1].
	CapitalFraction decimal.Decimal
	// MinNotional smallest leveraged exposure worth sending.
	MinNotional decimal.Decimal
	// Step instrument quantity increment, e.g. 0.0001 or 1.
	Step decimal.Decimal
}

// Exposure returns balance * fraction * leverage.
func Exposure(p Params) decimal.Decimal {
	return p.Balance.Mul(p.CapitalFraction).Mul(p.Leverage)
}

// Size returns the order quantity, rounded down to Step.
// Zero means the order cannot be executed: exposure below MinNotional,
// no usable price, or a quantity smaller than one step.
func Size(p Params) decimal.Decimal {
	if !p.Price.IsPositive() || !p.Leverage.IsPositive() || !p.Step.IsPositive() {
		return decimal.Zero
	}
	if !p.Balance.IsPositive() || !p.CapitalFraction.IsPositive() {
		return decimal.Zero
	}

	exposure := Exposure(p)
	if exposure.LessThan(p.MinNotional) {
		return decimal.Zero
	}

	// exact integer division keeps the floor from being skewed by division precision
	units, _ := exposure.QuoRem(p.Price.Mul(p.Step), 0)
	return units.Mul(p.Step)
}

// RoundDown floors qty to a multiple of step.
func RoundDown(qty, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return qty
	}
	units, _ := qty.QuoRem(step, 0)
	return units.Mul(step)
}
