package trader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/pricer"
)

// slippage of the IOC limit order emulating a market order
const hyperliquidSlippage = 0.005

// HyperliquidTrader trades perps in cross margin.
type HyperliquidTrader struct {
	ex          *hyperliquid.Exchange
	info        *hyperliquid.Info
	pricer      pricer.Pricer
	accountAddr string
}

func NewHyperliquidTrader(ex *hyperliquid.Exchange, accountAddr string) (*HyperliquidTrader, error) {
	if ex == nil {
		return nil, fmt.Errorf("hyperliquid exchange is nil")
	}
	return &HyperliquidTrader{
		ex:          ex,
		info:        ex.Info(),
		pricer:      pricer.NewHyperliquidPricer(ex.Info()),
		accountAddr: accountAddr,
	}, nil
}

// convert a free-form client ID into a valid Hyperliquid cloid (0x + 32 hex chars)
func cloidFromID(id string) string {
	s := strings.TrimSpace(id)
	if s == "" {
		s = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256([]byte(s))
	return "0x" + hex.EncodeToString(sum[:16])
}

func (t *HyperliquidTrader) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	st, err := t.info.UserState(ctx, t.accountAddr)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get user state")
	}

	// withdrawable is the margin not locked by open positions
	if st.Withdrawable != "" {
		if d, err := decimal.NewFromString(st.Withdrawable); err == nil {
			return d, nil
		}
	}
	if st.MarginSummary.TotalRawUsd != "" {
		if d, err := decimal.NewFromString(st.MarginSummary.TotalRawUsd); err == nil {
			return d, nil
		}
	}
	return decimal.Zero, nil
}

func (t *HyperliquidTrader) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.pricer.GetPrice(ctx, pair)
}

func (t *HyperliquidTrader) GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error) {
	st, err := t.info.UserState(ctx, t.accountAddr)
	if err != nil {
		return domain.Positions{}, errors.Wrap(err, "get user state")
	}

	var out domain.Positions
	for _, ap := range st.AssetPositions {
		if !strings.EqualFold(ap.Position.Coin, pair.From) {
			continue
		}
		szi := strings.TrimSpace(ap.Position.Szi)
		if szi == "" {
			continue
		}
		size, err := decimal.NewFromString(szi)
		if err != nil {
			return domain.Positions{}, errors.Wrapf(err, "parse position size %q", szi)
		}
		if size.IsPositive() {
			out.Long = out.Long.Add(size)
		} else if size.IsNegative() {
			out.Short = out.Short.Add(size.Abs())
		}
	}
	return out, nil
}

// SetLeverage leverage on hyperliquid is per asset, side is ignored.
func (t *HyperliquidTrader) SetLeverage(ctx context.Context, pair domain.Pair, leverage int, _ domain.PositionSide) error {
	if _, err := t.ex.UpdateLeverage(ctx, leverage, pair.From, true); err != nil {
		return errors.Wrap(err, "failed to set leverage for hyperliquid")
	}
	return nil
}

func (t *HyperliquidTrader) PlaceOrder(ctx context.Context, order domain.Order) (string, error) {
	isBuy := order.Side() == domain.OrderSideBuy
	size, _ := order.Quantity.Round(8).Float64()

	// limit IOC with slippage emulates a market order
	px, err := t.ex.SlippagePrice(ctx, order.Pair.From, isBuy, hyperliquidSlippage, nil)
	if err != nil {
		return "", errors.Wrap(err, "slippage price")
	}

	cloid := cloidFromID(order.ClientOrderID)
	req := hyperliquid.CreateOrderRequest{
		Coin:          order.Pair.From,
		IsBuy:         isBuy,
		Price:         px,
		Size:          size,
		ReduceOnly:    order.ReduceOnly(),
		ClientOrderID: &cloid,
		OrderType: hyperliquid.OrderType{
			Limit: &hyperliquid.LimitOrderType{Tif: hyperliquid.TifIoc},
		},
	}

	if _, err := t.ex.Order(ctx, req, nil); err != nil {
		return "", errors.Wrapf(err, "place hyperliquid %s order", order.Action)
	}
	return cloid, nil
}
