package internal

import (
	"fmt"

	"github.com/vadiminshakov/alertbridge/config"
	"github.com/vadiminshakov/alertbridge/internal/clients"
	"go.uber.org/zap"
)

// NewClient builds the platform client from configuration and credentials.
// Credentials must have been validated for conf.Platform.
func NewClient(conf config.Config, logger *zap.Logger) (any, error) {
	creds := conf.Credentials
	switch conf.Platform {
	case config.PlatformBitget:
		return clients.NewBitgetClient(
			creds.BitgetAPIKey,
			creds.BitgetAPISecret,
			creds.BitgetPassphrase,
			conf.APITimeout,
			clients.WithBitgetLogger(logger.Named("bitget")),
		), nil
	case config.PlatformBinance:
		return clients.NewBinanceFuturesClient(creds.BinanceAPIKey, creds.BinanceAPISecret, conf.APITimeout), nil
	case config.PlatformBybit:
		return clients.NewBybitClient(creds.BybitAPIKey, creds.BybitAPISecret, conf.APITimeout), nil
	case config.PlatformHyperliquid:
		client, err := clients.NewHyperliquidClient(creds.HyperliquidKey, conf.HyperliquidURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.PlatformSimulate:
		return clients.NewSimulateClient(conf.APITimeout), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", conf.Platform)
	}
}
