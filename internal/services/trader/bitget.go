package trader

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/pricer"
	"go.uber.org/zap"
)

const (
	bitgetMarginMode = "crossed"
	bitgetOrderType  = "market"
	bitgetForce      = "gtc"
)

type bitgetAPI interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Post(ctx context.Context, path string, body interface{}, out interface{}) error
}

// BitgetTrader trades USDT-margined perpetuals in one-way position mode.
type BitgetTrader struct {
	client     bitgetAPI
	pricer     pricer.Pricer
	marginCoin string
	logger     *zap.Logger
}

func NewBitgetTrader(client bitgetAPI, pair domain.Pair, logger *zap.Logger) *BitgetTrader {
	return &BitgetTrader{
		client:     client,
		pricer:     pricer.NewBitgetPricer(client),
		marginCoin: pair.To,
		logger:     logger,
	}
}

type bitgetAccount struct {
	MarginCoin string `json:"marginCoin"`
	Available  string `json:"available"`
}

type bitgetPosition struct {
	Symbol   string `json:"symbol"`
	HoldSide string `json:"holdSide"`
	Total    string `json:"total"`
}

// field order is the wire order
type bitgetLeverageRequest struct {
	Symbol      string `json:"symbol"`
	ProductType string `json:"productType"`
	MarginCoin  string `json:"marginCoin"`
	Leverage    string `json:"leverage"`
	HoldSide    string `json:"holdSide,omitempty"`
}

type bitgetOrderRequest struct {
	Symbol      string `json:"symbol"`
	ProductType string `json:"productType"`
	MarginMode  string `json:"marginMode"`
	MarginCoin  string `json:"marginCoin"`
	Size        string `json:"size"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Force       string `json:"force"`
	ReduceOnly  string `json:"reduceOnly"`
	ClientOid   string `json:"clientOid,omitempty"`
}

type bitgetOrderResponse struct {
	OrderID   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
}

func (t *BitgetTrader) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var accounts []bitgetAccount
	query := url.Values{"productType": {pricer.BitgetProductType}}
	if err := t.client.Get(ctx, "/api/v2/mix/account/accounts", query, &accounts); err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to get bitget futures accounts")
	}

	for _, acc := range accounts {
		if acc.MarginCoin != t.marginCoin {
			continue
		}
		available, err := decimal.NewFromString(acc.Available)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "failed to parse bitget available balance")
		}
		return available, nil
	}

	return decimal.Zero, nil
}

func (t *BitgetTrader) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return t.pricer.GetPrice(ctx, pair)
}

func (t *BitgetTrader) GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error) {
	var positions []bitgetPosition
	query := url.Values{
		"symbol":      {pair.Symbol()},
		"productType": {pricer.BitgetProductType},
		"marginCoin":  {t.marginCoin},
	}
	if err := t.client.Get(ctx, "/api/v2/mix/position/single-position", query, &positions); err != nil {
		return domain.Positions{}, errors.Wrap(err, "failed to get bitget position")
	}

	var out domain.Positions
	for _, p := range positions {
		total, err := decimal.NewFromString(p.Total)
		if err != nil {
			return domain.Positions{}, errors.Wrapf(err, "failed to parse bitget position total %q", p.Total)
		}
		switch p.HoldSide {
		case "long":
			out.Long = out.Long.Add(total.Abs())
		case "short":
			out.Short = out.Short.Add(total.Abs())
		}
	}
	return out, nil
}

func (t *BitgetTrader) SetLeverage(ctx context.Context, pair domain.Pair, leverage int, side domain.PositionSide) error {
	req := bitgetLeverageRequest{
		Symbol:      pair.Symbol(),
		ProductType: pricer.BitgetProductType,
		MarginCoin:  t.marginCoin,
		Leverage:    strconv.Itoa(leverage),
		HoldSide:    side.String(),
	}
	if err := t.client.Post(ctx, "/api/v2/mix/account/set-leverage", req, nil); err != nil {
		return errors.Wrapf(err, "failed to set bitget leverage %dx", leverage)
	}
	return nil
}

func (t *BitgetTrader) PlaceOrder(ctx context.Context, order domain.Order) (string, error) {
	reduceOnly := "NO"
	if order.ReduceOnly() {
		reduceOnly = "YES"
	}

	req := bitgetOrderRequest{
		Symbol:      order.Pair.Symbol(),
		ProductType: pricer.BitgetProductType,
		MarginMode:  bitgetMarginMode,
		MarginCoin:  t.marginCoin,
		Size:        order.Quantity.String(),
		Side:        string(order.Side()),
		OrderType:   bitgetOrderType,
		Force:       bitgetForce,
		ReduceOnly:  reduceOnly,
		ClientOid:   order.ClientOrderID,
	}

	var resp bitgetOrderResponse
	if err := t.client.Post(ctx, "/api/v2/mix/order/place-order", req, &resp); err != nil {
		return "", errors.Wrapf(err, "failed to place bitget %s order", order.Action)
	}

	t.logger.Debug("bitget order accepted",
		zap.String("order_id", resp.OrderID),
		zap.String("client_oid", resp.ClientOid),
	)
	return resp.OrderID, nil
}
