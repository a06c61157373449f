package trader

import (
	"context"
	"strconv"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/pricer"
)

// BybitTrader trades linear perpetuals on a unified account.
// The bybit SDK takes no context; calls are bounded by the HTTP client timeout.
type BybitTrader struct {
	client *bybit.Client
	pricer pricer.Pricer
	pair   domain.Pair
}

func NewBybitTrader(client *bybit.Client, pair domain.Pair) *BybitTrader {
	return &BybitTrader{
		client: client,
		pricer: pricer.NewBybitPricer(client),
		pair:   pair,
	}
}

func (t *BybitTrader) GetBalance(_ context.Context) (decimal.Decimal, error) {
	coin := bybit.Coin(t.pair.To)
	res, err := t.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5UNIFIED, []bybit.Coin{coin})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get bybit wallet balance")
	}

	for _, acc := range res.Result.List {
		for _, c := range acc.Coin {
			if string(c.Coin) != string(coin) {
				continue
			}
			raw := c.AvailableToWithdraw
			if raw == "" {
				raw = c.WalletBalance
			}
			available, err := decimal.NewFromString(raw)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse bybit balance")
			}
			return available, nil
		}
	}

	return decimal.Zero, nil
}

func (t *BybitTrader) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.pricer.GetPrice(ctx, pair)
}

func (t *BybitTrader) GetPositions(_ context.Context, pair domain.Pair) (domain.Positions, error) {
	symbol := bybit.SymbolV5(pair.Symbol())
	res, err := t.client.V5().Position().GetPositionInfo(bybit.V5GetPositionInfoParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   &symbol,
	})
	if err != nil {
		return domain.Positions{}, errors.Wrap(err, "failed to get bybit position info")
	}

	var out domain.Positions
	for _, p := range res.Result.List {
		if p.Size == "" {
			continue
		}
		size, err := decimal.NewFromString(p.Size)
		if err != nil {
			return domain.Positions{}, errors.Wrapf(err, "failed to parse bybit position size %q", p.Size)
		}
		switch bybit.Side(p.Side) {
		case bybit.SideBuy:
			out.Long = out.Long.Add(size)
		case bybit.SideSell:
			out.Short = out.Short.Add(size)
		}
	}
	return out, nil
}

// SetLeverage sets the same leverage for both sides; bybit rejects differing values in one-way mode.
func (t *BybitTrader) SetLeverage(_ context.Context, pair domain.Pair, leverage int, _ domain.PositionSide) error {
	lev := strconv.Itoa(leverage)
	_, err := t.client.V5().Position().SetLeverage(bybit.V5SetLeverageParam{
		Category:     bybit.CategoryV5Linear,
		Symbol:       bybit.SymbolV5(pair.Symbol()),
		BuyLeverage:  lev,
		SellLeverage: lev,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to set bybit leverage %dx", leverage)
	}
	return nil
}

func (t *BybitTrader) PlaceOrder(_ context.Context, order domain.Order) (string, error) {
	side := bybit.SideSell
	if order.Side() == domain.OrderSideBuy {
		side = bybit.SideBuy
	}
	reduceOnly := order.ReduceOnly()
	linkID := order.ClientOrderID

	res, err := t.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Linear,
		Symbol:      bybit.SymbolV5(order.Pair.Symbol()),
		Side:        side,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         order.Quantity.String(),
		ReduceOnly:  &reduceOnly,
		OrderLinkID: &linkID,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to create bybit %s order", order.Action)
	}

	return res.Result.OrderID, nil
}
