package internal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/alertbridge/config"
	"github.com/vadiminshakov/alertbridge/internal/keepalive"
	"github.com/vadiminshakov/alertbridge/internal/metrics"
	"github.com/vadiminshakov/alertbridge/internal/services/dedup"
	"github.com/vadiminshakov/alertbridge/internal/services/execution"
	"github.com/vadiminshakov/alertbridge/internal/services/marketstate"
	"github.com/vadiminshakov/alertbridge/internal/services/positionstate"
	"github.com/vadiminshakov/alertbridge/internal/services/signal"
	"github.com/vadiminshakov/alertbridge/internal/services/trader"
	"github.com/vadiminshakov/alertbridge/internal/web"
	"github.com/vadiminshakov/alertbridge/pkg/poller"
)

// Bridge is one running instance: a webhook server in front of one trading account and instrument.
type Bridge struct {
	Config config.Config
	Engine *execution.Engine
	Server *web.Server

	pinger *keepalive.Pinger
	logger *zap.Logger
}

// NewBridge wires the pipeline for the given platform client.
func NewBridge(conf config.Config, client any, logger *zap.Logger) (*Bridge, error) {
	logger = logger.With(zap.String("platform", conf.Platform), zap.String("pair", conf.Pair.String()))

	provider, err := newServiceProvider(client, logger, conf.SimulateBalance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create service provider")
	}
	api, err := provider.Trader(conf.Pair)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trader")
	}
	api = trader.RetryReads(api, trader.NewReadRetrier(conf.ReadRetries, conf.ReadRetryInterval), conf.APITimeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	cache := marketstate.NewCache(logger, api, conf.Pair, conf.CacheTTL, conf.FetchWorkers)
	tracker := positionstate.New(conf.PyramidingCap)

	coordinator := execution.NewCoordinator(logger, api, cache, tracker,
		execution.Settings{
			Pair:            conf.Pair,
			Leverage:        conf.Leverage,
			CapitalFraction: conf.CapitalFraction,
			MinNotional:     conf.MinNotional,
			QuantityStep:    conf.QuantityStep,
			CloseConfirm:    poller.New(conf.CloseConfirmAttempts, conf.CloseConfirmInterval),
		},
		execution.WithOrderRecorder(recorder),
	)

	engine := execution.NewEngine(logger,
		signal.NewNormalizer(),
		dedup.New(conf.DedupWindow),
		cache,
		coordinator,
		recorder,
		execution.EngineSettings{
			Pair:           conf.Pair,
			Leverage:       conf.Leverage,
			DedupStrict:    conf.DedupStrict,
			RequestTimeout: conf.RequestTimeout,
		},
	)

	server := web.NewServer(conf.ListenAddr, engine, reg, web.Info{
		Platform: conf.Platform,
		Symbol:   conf.Pair.Symbol(),
		Leverage: conf.Leverage,
	}, logger)

	return &Bridge{
		Config: conf,
		Engine: engine,
		Server: server,
		pinger: keepalive.New(conf.KeepaliveURL, conf.KeepaliveInterval, conf.APITimeout, logger),
		logger: logger,
	}, nil
}

// Run serves webhooks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Server.Start(ctx)
	})
	g.Go(func() error {
		b.pinger.Run(ctx)
		return nil
	})

	b.logger.Info("bridge started",
		zap.Int("leverage", b.Config.Leverage),
		zap.String("capital_fraction", b.Config.CapitalFraction.String()),
		zap.Int("pyramiding_cap", b.Config.PyramidingCap),
	)

	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "bridge stopped")
	}
	return nil
}
