package pricer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

// BitgetProductType USDT margined perpetual futures.
const BitgetProductType = "USDT-FUTURES"

type bitgetGetter interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
}

// BitgetPricer reads the futures ticker.
type BitgetPricer struct {
	client bitgetGetter
}

func NewBitgetPricer(client bitgetGetter) *BitgetPricer {
	return &BitgetPricer{client: client}
}

type bitgetTicker struct {
	Symbol string `json:"symbol"`
	LastPr string `json:"lastPr"`
}

func (p *BitgetPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	query := url.Values{
		"symbol":      {pair.Symbol()},
		"productType": {BitgetProductType},
	}

	var tickers []bitgetTicker
	if err := p.client.Get(ctx, "/api/v2/mix/market/ticker", query, &tickers); err != nil {
		return decimal.Zero, errors.Wrap(err, "get bitget ticker")
	}
	if len(tickers) == 0 {
		return decimal.Zero, fmt.Errorf("bitget API returned empty ticker for %s", pair.String())
	}

	return parsePrice("bitget", pair, tickers[0].LastPr)
}
