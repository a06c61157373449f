package trader

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"go.uber.org/zap"
)

// Pricer defines an interface for getting the price of a trading pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// SimulateTrader is a paper futures account filled at live prices.
type SimulateTrader struct {
	mu        sync.RWMutex
	pair      domain.Pair
	logger    *zap.Logger
	balance   decimal.Decimal
	leverage  int
	positions map[domain.PositionSide]*simPosition
	orders    map[string]orderInfo
	seq       int64
	pricer    Pricer
}

type simPosition struct {
	amount     decimal.Decimal
	entryPrice decimal.Decimal
	// margin locked for the position, released pro rata on close
	margin decimal.Decimal
}

type orderInfo struct {
	amount decimal.Decimal
	price  decimal.Decimal
	action domain.Action
}

// NewSimulateTrader creates a new SimulateTrader holding balance in quote currency.
func NewSimulateTrader(pair domain.Pair, logger *zap.Logger, pricer Pricer, balance decimal.Decimal) (*SimulateTrader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pricer == nil {
		return nil, errors.New("pricer is required for SimulateTrader")
	}
	if balance.IsNegative() {
		return nil, errors.Errorf("initial balance must not be negative, got %s", balance)
	}

	trader := &SimulateTrader{
		pair:      pair,
		logger:    logger,
		balance:   balance,
		leverage:  1,
		positions: make(map[domain.PositionSide]*simPosition),
		orders:    make(map[string]orderInfo),
		pricer:    pricer,
	}
	logger.Info("simulate init",
		zap.String("pair", pair.String()),
		zap.String("balance", balance.String()))
	return trader, nil
}

func (t *SimulateTrader) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance, nil
}

func (t *SimulateTrader) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.pricer.GetPrice(ctx, pair)
}

func (t *SimulateTrader) GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out domain.Positions
	if pair != t.pair {
		return out, nil
	}
	if p, ok := t.positions[domain.PositionSideLong]; ok {
		out.Long = p.amount
	}
	if p, ok := t.positions[domain.PositionSideShort]; ok {
		out.Short = p.amount
	}
	return out, nil
}

func (t *SimulateTrader) SetLeverage(ctx context.Context, pair domain.Pair, leverage int, side domain.PositionSide) error {
	if leverage < 1 {
		return fmt.Errorf("leverage must be at least 1, got %d", leverage)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leverage = leverage
	return nil
}

// PlaceOrder fills the order at the current price.
func (t *SimulateTrader) PlaceOrder(ctx context.Context, order domain.Order) (string, error) {
	if order.Pair != t.pair {
		return "", fmt.Errorf("simulator trades %s only, got %s", t.pair, order.Pair)
	}
	if !order.Quantity.IsPositive() {
		return "", fmt.Errorf("order quantity must be positive, got %s", order.Quantity.String())
	}

	price, err := t.pricer.GetPrice(ctx, t.pair)
	if err != nil {
		return "", errors.Wrap(err, "failed to get price for simulated order")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	side := order.Action.PositionSide()
	var filled decimal.Decimal
	if order.ReduceOnly() {
		filled, err = t.close(side, order.Quantity, price)
	} else {
		filled, err = t.open(side, order.Quantity, price)
	}
	if err != nil {
		return "", err
	}

	t.seq++
	id := fmt.Sprintf("sim-%d", t.seq)
	t.orders[id] = orderInfo{amount: filled, price: price, action: order.Action}
	t.logger.Info("simulated order executed",
		zap.String("id", id),
		zap.String("client_order_id", order.ClientOrderID),
		zap.String("action", order.Action.String()),
		zap.String("amount", filled.String()),
		zap.String("price", price.String()),
		zap.String("balance", t.balance.String()))
	return id, nil
}

func (t *SimulateTrader) open(side domain.PositionSide, amount, price decimal.Decimal) (decimal.Decimal, error) {
	if p, ok := t.positions[side.Opposite()]; ok && p.amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("cannot open %s while %s position is active", side, side.Opposite())
	}

	margin := amount.Mul(price).Div(decimal.NewFromInt(int64(t.leverage)))
	if t.balance.LessThan(margin) {
		return decimal.Zero, errors.Errorf("insufficient %s balance: have %s need %s (with %dx leverage)",
			t.pair.To,
			t.balance.String(),
			margin.String(),
			t.leverage)
	}
	t.balance = t.balance.Sub(margin)

	p, ok := t.positions[side]
	if !ok {
		t.positions[side] = &simPosition{amount: amount, entryPrice: price, margin: margin}
		return amount, nil
	}

	totalBase := p.amount.Add(amount)
	existingNotional := p.entryPrice.Mul(p.amount)
	addedNotional := amount.Mul(price)
	p.entryPrice = existingNotional.Add(addedNotional).Div(totalBase)
	p.amount = totalBase
	p.margin = p.margin.Add(margin)
	return amount, nil
}

func (t *SimulateTrader) close(side domain.PositionSide, amount, price decimal.Decimal) (decimal.Decimal, error) {
	p, ok := t.positions[side]
	if !ok || !p.amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("reduce-only order rejected: no %s position", side)
	}

	closeAmount := amount
	if closeAmount.GreaterThan(p.amount) {
		closeAmount = p.amount
		t.logger.Warn("requested close amount exceeds position size, capping to position amount",
			zap.String("requested", amount.String()),
			zap.String("position", p.amount.String()))
	}

	fraction := closeAmount.Div(p.amount)
	marginReleased := p.margin.Mul(fraction)

	pnl := price.Sub(p.entryPrice).Mul(closeAmount)
	if side == domain.PositionSideShort {
		pnl = pnl.Neg()
	}

	t.balance = t.balance.Add(marginReleased).Add(pnl)
	p.margin = p.margin.Sub(marginReleased)
	p.amount = p.amount.Sub(closeAmount)
	if !p.amount.IsPositive() {
		delete(t.positions, side)
	}
	return closeAmount, nil
}

// UnrealizedPnL returns the open profit or loss at price.
func (t *SimulateTrader) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pnl := decimal.Zero
	if p, ok := t.positions[domain.PositionSideLong]; ok {
		pnl = pnl.Add(price.Sub(p.entryPrice).Mul(p.amount))
	}
	if p, ok := t.positions[domain.PositionSideShort]; ok {
		pnl = pnl.Add(p.entryPrice.Sub(price).Mul(p.amount))
	}
	return pnl
}
