package internal

import (
	"fmt"

	"github.com/adshao/go-binance/v2/futures"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/alertbridge/internal/clients"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/pricer"
	"github.com/vadiminshakov/alertbridge/internal/services/trader"
)

// serviceProvider creates the trading API adapter for one platform client.
type serviceProvider interface {
	Trader(pair domain.Pair) (trader.TradingAPI, error)
}

// newServiceProvider dispatches on the client type.
// This is the single point of truth for picking a platform-specific adapter.
func newServiceProvider(client any, logger *zap.Logger, simulateBalance decimal.Decimal) (serviceProvider, error) {
	switch c := client.(type) {
	case *clients.BitgetClient:
		return &bitgetProvider{client: c, logger: logger}, nil
	case *futures.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.SimulateClient:
		return &simulateProvider{client: c, logger: logger, balance: simulateBalance}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type bitgetProvider struct {
	client *clients.BitgetClient
	logger *zap.Logger
}

func (p *bitgetProvider) Trader(pair domain.Pair) (trader.TradingAPI, error) {
	return trader.NewBitgetTrader(p.client, pair, p.logger), nil
}

type binanceProvider struct {
	client *futures.Client
}

func (p *binanceProvider) Trader(pair domain.Pair) (trader.TradingAPI, error) {
	return trader.NewBinanceTrader(p.client, pair), nil
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) Trader(pair domain.Pair) (trader.TradingAPI, error) {
	return trader.NewBybitTrader(p.client, pair), nil
}

type simulateProvider struct {
	client  *clients.SimulateClient
	logger  *zap.Logger
	balance decimal.Decimal
}

func (p *simulateProvider) Trader(pair domain.Pair) (trader.TradingAPI, error) {
	return trader.NewSimulateTrader(pair, p.logger, pricer.NewBinancePricer(p.client.FuturesClient()), p.balance)
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
}

func (p *hyperliquidProvider) Trader(_ domain.Pair) (trader.TradingAPI, error) {
	return trader.NewHyperliquidTrader(p.client.Exchange(), p.client.AccountAddress())
}
