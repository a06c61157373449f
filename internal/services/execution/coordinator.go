// Package execution reconciles signals with the live account and places orders.
package execution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/sizing"
	"github.com/vadiminshakov/alertbridge/pkg/poller"
	"go.uber.org/zap"
)

// TradingAPI is the exchange account the bridge trades on.
type TradingAPI interface {
	// GetBalance returns the available margin balance in quote currency.
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	// GetPrice returns the last traded price of pair.
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	// GetPositions returns open quantity per side, in base currency.
	GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error)
	// SetLeverage sets the leverage used for new positions on side.
	SetLeverage(ctx context.Context, pair domain.Pair, leverage int, side domain.PositionSide) error
	// PlaceOrder sends a market order and returns the exchange order id.
	PlaceOrder(ctx context.Context, order domain.Order) (string, error)
}

type snapshotter interface {
	Get(ctx context.Context, force bool) (domain.MarketSnapshot, error)
	Invalidate()
}

type entryTracker interface {
	RecordOpen(side domain.PositionSide)
	Reset()
	Entries(side domain.PositionSide) int
	Cap() int
}

type orderRecorder interface {
	RecordOrder(action, result string)
}

// Settings sizing and reconciliation parameters of the coordinator.
type Settings struct {
	Pair            domain.Pair
	Leverage        int
	CapitalFraction decimal.Decimal
	MinNotional     decimal.Decimal
	QuantityStep    decimal.Decimal
	// CloseConfirm bounds the wait for the opposite side to read as closed.
	CloseConfirm *poller.Poller
}

// Outcome what the coordinator did for one signal.
type Outcome struct {
	// Previous position state the decision was made on.
	Previous domain.PositionState
	// Target position requested by the signal.
	Target domain.MarketPosition
	// Orders accepted by the exchange, in submission order.
	Orders []domain.ExecutedOrder
	// Opened quantity of the opening order, zero when nothing was opened.
	Opened decimal.Decimal
	// Price used for sizing.
	Price decimal.Decimal
	// Entries on the target side after execution.
	Entries int
	// Message human readable summary.
	Message string
}

// Coordinator turns a target position into exchange orders.
// It is safe for concurrent use but does not serialize signals:
// two signals racing on the same account can both act on the same snapshot.
type Coordinator struct {
	api      TradingAPI
	snapshot snapshotter
	tracker  entryTracker
	settings Settings
	logger   *zap.Logger
	orders   orderRecorder
	newID    func() string
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithOrderRecorder counts placed and failed orders.
func WithOrderRecorder(r orderRecorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.orders = r
	}
}

// WithClientOrderIDs overrides client order id generation.
func WithClientOrderIDs(newID func() string) CoordinatorOption {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(logger *zap.Logger, api TradingAPI, snapshot snapshotter, tracker entryTracker, settings Settings, opts ...CoordinatorOption) *Coordinator {
	if settings.CloseConfirm == nil {
		settings.CloseConfirm = poller.New(0, 0)
	}
	c := &Coordinator{
		api:      api,
		snapshot: snapshot,
		tracker:  tracker,
		settings: settings,
		logger:   logger.With(zap.String("pair", settings.Pair.String())),
		orders:   nopRecorder{},
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute moves the account towards the signal's desired position.
// A non-nil error may come with a partially filled Outcome, e.g. when the
// opposite side was closed but the opening order failed.
func (c *Coordinator) Execute(ctx context.Context, sig domain.Signal, snap domain.MarketSnapshot) (Outcome, error) {
	out := Outcome{
		Previous: snap.State(),
		Target:   sig.Desired,
		Price:    snap.Price,
	}

	if !snap.Has(domain.FetchPositions) {
		return out, errors.Wrap(domain.ErrMarketDataUnavailable, "positions unknown")
	}

	if sig.Desired == domain.MarketPositionFlat {
		return c.flatten(ctx, snap, out)
	}

	side, ok := sig.Desired.Side()
	if !ok {
		return out, errors.Wrapf(domain.ErrMalformedSignal, "unsupported target position %q", sig.Desired)
	}

	opposite := side.Opposite()
	if qty := snap.Positions.Quantity(opposite); qty.IsPositive() {
		order, err := c.place(ctx, domain.CloseAction(opposite), qty, snap.Price)
		if err != nil {
			return out, err
		}
		out.Orders = append(out.Orders, order)

		c.snapshot.Invalidate()
		c.tracker.Reset()

		snap, err = c.awaitClosed(ctx, opposite, snap)
		if err != nil {
			return out, err
		}
		out.Price = snap.Price
	}

	existing := snap.Positions.Quantity(side)
	entries := c.tracker.Entries(side)
	switch {
	case existing.IsPositive():
		// a position opened outside the bridge still counts as one entry
		effective := max(entries, 1)
		if effective >= c.tracker.Cap() {
			out.Entries = effective
			out.Message = fmt.Sprintf("%s position already open with %d of %d entries", side, effective, c.tracker.Cap())
			return out, errors.Wrapf(domain.ErrPyramidLimitReached, "%s entries %d, cap %d", side, effective, c.tracker.Cap())
		}
	case entries > 0:
		// counted entries but nothing on the exchange: closed externally
		c.logger.Info("position tracker out of sync with exchange, resetting",
			zap.String("side", side.String()),
			zap.Int("entries", entries),
		)
		c.tracker.Reset()
	}

	return c.open(ctx, side, snap, out)
}

func (c *Coordinator) flatten(ctx context.Context, snap domain.MarketSnapshot, out Outcome) (Outcome, error) {
	mutated := false
	defer func() {
		if mutated {
			c.snapshot.Invalidate()
		}
	}()

	for _, side := range []domain.PositionSide{domain.PositionSideLong, domain.PositionSideShort} {
		qty := snap.Positions.Quantity(side)
		if !qty.IsPositive() {
			continue
		}

		order, err := c.place(ctx, domain.CloseAction(side), qty, snap.Price)
		if err != nil {
			// the position is still open, its entries keep counting
			return out, err
		}
		mutated = true
		out.Orders = append(out.Orders, order)
	}

	c.tracker.Reset()
	if !mutated {
		out.Message = "already flat"
		return out, nil
	}
	out.Message = "position closed"
	return out, nil
}

// awaitClosed polls forced snapshots until side reads as closed.
// On timeout the last read is returned and the caller proceeds on it.
func (c *Coordinator) awaitClosed(ctx context.Context, side domain.PositionSide, prev domain.MarketSnapshot) (domain.MarketSnapshot, error) {
	last := prev
	refreshed := false

	confirmed := c.settings.CloseConfirm.Until(ctx, func(ctx context.Context) bool {
		snap, err := c.snapshot.Get(ctx, true)
		if err != nil {
			return false
		}
		last = snap
		refreshed = true
		return snap.Has(domain.FetchPositions) && !snap.Positions.Quantity(side).IsPositive()
	})

	if !confirmed {
		c.logger.Warn("close not confirmed, proceeding with last read",
			zap.String("side", side.String()),
			zap.String("quantity", last.Positions.Quantity(side).String()),
			zap.Int("attempts", c.settings.CloseConfirm.Attempts()),
		)
	}

	if !refreshed {
		// sizing must use the balance released by the close
		snap, err := c.snapshot.Get(ctx, true)
		if err != nil {
			return prev, errors.Wrap(domain.ErrMarketDataUnavailable, err.Error())
		}
		last = snap
	}

	return last, nil
}

func (c *Coordinator) open(ctx context.Context, side domain.PositionSide, snap domain.MarketSnapshot, out Outcome) (Outcome, error) {
	if !snap.PriceAvailable() {
		return out, errors.Wrap(domain.ErrMarketDataUnavailable, "price unknown")
	}
	if !snap.Has(domain.FetchBalance) {
		return out, errors.Wrap(domain.ErrMarketDataUnavailable, "balance unknown")
	}
	out.Price = snap.Price

	leverage := decimal.NewFromInt(int64(c.settings.Leverage))
	params := sizing.Params{
		Balance:         snap.Balance,
		Price:           snap.Price,
		Leverage:        leverage,
		CapitalFraction: c.settings.CapitalFraction,
		MinNotional:     c.settings.MinNotional,
		Step:            c.settings.QuantityStep,
	}
	qty := sizing.Size(params)
	if qty.IsZero() {
		return out, errors.Wrapf(domain.ErrInsufficientExposure,
			"balance %s, fraction %s, leverage %d, exposure %s, min notional %s",
			snap.Balance, c.settings.CapitalFraction, c.settings.Leverage, sizing.Exposure(params), c.settings.MinNotional)
	}

	if err := c.api.SetLeverage(ctx, c.settings.Pair, c.settings.Leverage, side); err != nil {
		c.logger.Warn("failed to set leverage, using exchange setting",
			zap.Int("leverage", c.settings.Leverage),
			zap.String("side", side.String()),
			zap.Error(err),
		)
	}

	order, err := c.place(ctx, domain.OpenAction(side), qty, snap.Price)
	if err != nil {
		return out, err
	}
	out.Orders = append(out.Orders, order)
	out.Opened = qty

	c.snapshot.Invalidate()
	c.tracker.RecordOpen(side)
	out.Entries = c.tracker.Entries(side)
	out.Message = fmt.Sprintf("%s opened", side)

	return out, nil
}

func (c *Coordinator) place(ctx context.Context, action domain.Action, qty, price decimal.Decimal) (domain.ExecutedOrder, error) {
	order := domain.Order{
		Pair:          c.settings.Pair,
		Action:        action,
		Quantity:      qty,
		ClientOrderID: c.newID(),
	}

	orderID, err := c.api.PlaceOrder(ctx, order)
	if err != nil {
		c.orders.RecordOrder(action.String(), "failed")
		c.logger.Error("order placement failed",
			zap.String("action", action.String()),
			zap.String("side", string(order.Side())),
			zap.Bool("reduce_only", order.ReduceOnly()),
			zap.String("quantity", qty.String()),
			zap.String("client_order_id", order.ClientOrderID),
			zap.Error(err),
		)
		return domain.ExecutedOrder{}, errors.Wrapf(domain.ErrOrderPlacement, "%s %s: %s", action, qty, err)
	}

	c.orders.RecordOrder(action.String(), "ok")
	c.logger.Info("order placed",
		zap.String("action", action.String()),
		zap.String("quantity", qty.String()),
		zap.String("order_id", orderID),
		zap.String("client_order_id", order.ClientOrderID),
	)

	return domain.ExecutedOrder{
		Action:   action,
		Side:     order.Side(),
		Quantity: qty,
		Price:    price,
		OrderID:  orderID,
	}, nil
}
