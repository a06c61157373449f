package domain

import "github.com/shopspring/decimal"

// OrderSide market side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order market order request sent to the trading API.
type Order struct {
	Pair          Pair
	Action        Action
	Quantity      decimal.Decimal
	ClientOrderID string
}

// Side returns the market side derived from the action.
func (o Order) Side() OrderSide {
	return o.Action.OrderSide()
}

// ReduceOnly reports whether the order may only reduce a position.
func (o Order) ReduceOnly() bool {
	return o.Action.ReduceOnly()
}

// ExecutedOrder an order accepted by the trading API.
type ExecutedOrder struct {
	Action   Action          `json:"action"`
	Side     OrderSide       `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	OrderID  string          `json:"order_id"`
}
