// Command alertbridge receives TradingView-style strategy alerts over HTTP and
// mirrors the strategy position on a futures exchange.
//
// Usage:
//
//	alertbridge --config config.yaml
//	alertbridge --setup          (interactive wizard, writes config.gen.yaml)
//	alertbridge                  (defaults plus environment)
//
// Required environment variables:
//
//	For Bitget: BITGET_API_KEY, BITGET_API_SECRET, BITGET_API_PASSPHRASE
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//	For Hyperliquid: HYPERLIQUID_PRIVATE_KEY
//
// PORT, PLATFORM, PAIR and LEVERAGE override the config file.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vadiminshakov/alertbridge/config"
	"github.com/vadiminshakov/alertbridge/internal"
	"github.com/vadiminshakov/alertbridge/internal/setup"
	"go.uber.org/zap"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if flags.Setup {
		if err := setup.RunTUI(flags.ConfigPath); err != nil {
			log.Fatal(err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := config.LoadEnv(); err != nil {
		logger.Fatal("failed to load .env", zap.Error(err))
	}

	conf, err := config.Get(flags.ConfigPath)
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	if err := conf.Credentials.Validate(conf.Platform); err != nil {
		logger.Fatal("refusing to start", zap.Error(err))
	}

	client, err := internal.NewClient(conf, logger)
	if err != nil {
		logger.Fatal("failed to create platform client", zap.Error(err))
	}

	bridge, err := internal.NewBridge(conf, client, logger)
	if err != nil {
		logger.Fatal("failed to create bridge", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Run(ctx); err != nil {
		logger.Error("bridge exited with error", zap.Error(err))
		return
	}
	logger.Info("bridge stopped")
}
