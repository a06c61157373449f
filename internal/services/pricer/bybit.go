package pricer

import (
	"context"
	"fmt"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

type BybitPricer struct {
	client *bybit.Client
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

// GetPrice returns the last price of the linear perpetual.
// The bybit SDK takes no context, cancellation is bounded by the HTTP client timeout.
func (p *BybitPricer) GetPrice(_ context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get bybit tickers")
	}

	if result.Result.LinearInverse == nil || len(result.Result.LinearInverse.List) == 0 {
		return decimal.Zero, fmt.Errorf("bybit API returned empty prices for %s", pair.String())
	}

	return parsePrice("bybit", pair, result.Result.LinearInverse.List[0].LastPrice)
}
