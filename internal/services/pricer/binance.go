package pricer

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

// BinancePricer fetches USDⓈ-M futures prices. Works with an unauthenticated client.
type BinancePricer struct {
	client *futures.Client
}

func NewBinancePricer(client *futures.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "list binance futures prices")
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("binance API returned empty prices for %s", pair.String())
	}

	return parsePrice("binance", pair, prices[0].Price)
}
