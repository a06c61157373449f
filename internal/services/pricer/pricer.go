// Package pricer reads last traded prices of perpetual futures.
package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

func parsePrice(venue string, pair domain.Pair, s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "%s returned invalid price %q for %s", venue, s, pair.String())
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Errorf("%s returned non-positive price %s for %s", venue, price, pair.String())
	}
	return price, nil
}
