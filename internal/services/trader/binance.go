package trader

import (
	"context"
	"strconv"
	"sync"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/pricer"
)

// BinanceTrader trades USDⓈ-M perpetual futures in either position mode.
// The account's mode is read once, on the first order.
type BinanceTrader struct {
	client *futures.Client
	pricer pricer.Pricer
	pair   domain.Pair

	modeMu    sync.Mutex
	modeKnown bool
	hedge     bool
}

func NewBinanceTrader(client *futures.Client, pair domain.Pair) *BinanceTrader {
	return &BinanceTrader{
		client: client,
		pricer: pricer.NewBinancePricer(client),
		pair:   pair,
	}
}

func (t *BinanceTrader) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := t.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get binance futures balance")
	}

	for _, b := range balances {
		if b.Asset != t.pair.To {
			continue
		}
		available, err := decimal.NewFromString(b.AvailableBalance)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "failed to parse binance available balance")
		}
		return available, nil
	}

	return decimal.Zero, nil
}

func (t *BinanceTrader) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.pricer.GetPrice(ctx, pair)
}

// GetPositions reads signed BOTH amounts in one-way mode and LONG/SHORT legs in hedge mode.
func (t *BinanceTrader) GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error) {
	risks, err := t.client.NewGetPositionRiskService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return domain.Positions{}, errors.Wrap(err, "failed to get binance position risk")
	}

	var out domain.Positions
	for _, r := range risks {
		if r.Symbol != pair.Symbol() {
			continue
		}
		amt, err := decimal.NewFromString(r.PositionAmt)
		if err != nil {
			return domain.Positions{}, errors.Wrapf(err, "failed to parse binance position amount %q", r.PositionAmt)
		}

		switch futures.PositionSideType(r.PositionSide) {
		case futures.PositionSideTypeLong:
			out.Long = out.Long.Add(amt.Abs())
		case futures.PositionSideTypeShort:
			out.Short = out.Short.Add(amt.Abs())
		default:
			if amt.IsPositive() {
				out.Long = out.Long.Add(amt)
			} else if amt.IsNegative() {
				out.Short = out.Short.Add(amt.Abs())
			}
		}
	}
	return out, nil
}

// SetLeverage binance leverage is per symbol, side is ignored.
func (t *BinanceTrader) SetLeverage(ctx context.Context, pair domain.Pair, leverage int, _ domain.PositionSide) error {
	_, err := t.client.NewChangeLeverageService().Symbol(pair.Symbol()).Leverage(leverage).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to set binance leverage %dx", leverage)
	}
	return nil
}

func (t *BinanceTrader) PlaceOrder(ctx context.Context, order domain.Order) (string, error) {
	hedge, err := t.hedgeMode(ctx)
	if err != nil {
		return "", err
	}

	side := futures.SideTypeSell
	if order.Side() == domain.OrderSideBuy {
		side = futures.SideTypeBuy
	}

	svc := t.client.NewCreateOrderService().
		Symbol(order.Pair.Symbol()).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(order.Quantity.String()).
		NewClientOrderID(order.ClientOrderID)
	switch {
	case hedge:
		// hedge mode rejects reduceOnly, the leg is picked by positionSide
		positionSide := futures.PositionSideTypeLong
		if order.Action.PositionSide() == domain.PositionSideShort {
			positionSide = futures.PositionSideTypeShort
		}
		svc = svc.PositionSide(positionSide)
	case order.ReduceOnly():
		svc = svc.ReduceOnly(true)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create binance %s order", order.Action)
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

func (t *BinanceTrader) hedgeMode(ctx context.Context) (bool, error) {
	t.modeMu.Lock()
	defer t.modeMu.Unlock()

	if t.modeKnown {
		return t.hedge, nil
	}

	mode, err := t.client.NewGetPositionModeService().Do(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get binance position mode")
	}
	t.hedge = mode.DualSidePosition
	t.modeKnown = true
	return t.hedge, nil
}
