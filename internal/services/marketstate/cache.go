// Package marketstate keeps a short-lived snapshot of account and market state.
package marketstate

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type fetcher interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error)
}

// Cache serves MarketSnapshots for one pair.
//
// A snapshot is reused while it is complete, younger than ttl and no
// mutation was reported through Invalidate since its refresh started.
// Concurrent refreshes of the same generation share one set of fetches.
type Cache struct {
	api     fetcher
	pair    domain.Pair
	ttl     time.Duration
	workers int
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	gen     uint64
	snap    domain.MarketSnapshot
	snapGen uint64
	hasSnap bool

	flight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache. workers bounds the number of fetches in flight per refresh.
func NewCache(logger *zap.Logger, api fetcher, pair domain.Pair, ttl time.Duration, workers int, opts ...Option) *Cache {
	if workers < 1 {
		workers = 1
	}
	c := &Cache{
		api:     api,
		pair:    pair,
		ttl:     ttl,
		workers: workers,
		logger:  logger.With(zap.String("pair", pair.String())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invalidate marks the current snapshot stale. Refreshes already in flight
// keep running but no later Get will join them or read their result as fresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// Get returns a snapshot, refreshing it when needed. force always refreshes.
// Fetch failures are reported in MarketSnapshot.Missing, the returned error
// is non-nil only when ctx ends before the refresh completes. Ending ctx
// does not cancel the fetches, which are bounded by the fetcher's own timeouts.
func (c *Cache) Get(ctx context.Context, force bool) (domain.MarketSnapshot, error) {
	if force {
		c.Invalidate()
	}

	c.mu.Lock()
	gen := c.gen
	if c.fresh(gen) {
		snap := c.snap
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	// the refresh is shared, so it must outlive the caller that started it
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return c.refresh(flightCtx, gen), nil
	})

	select {
	case <-ctx.Done():
		return domain.MarketSnapshot{}, errors.Wrap(ctx.Err(), "wait for market snapshot")
	case res := <-ch:
		return res.Val.(domain.MarketSnapshot), nil
	}
}

// fresh must be called with mu held.
func (c *Cache) fresh(gen uint64) bool {
	if !c.hasSnap || c.snapGen != gen || !c.snap.Complete() {
		return false
	}
	return c.snap.Age(c.now()) < c.ttl
}

func (c *Cache) refresh(ctx context.Context, gen uint64) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{FetchedAt: c.now()}

	var (
		mu      sync.Mutex
		missing []string
	)
	fail := func(name string, err error) {
		c.logger.Warn("market state fetch failed", zap.String("fetch", name), zap.Error(err))
		mu.Lock()
		missing = append(missing, name)
		mu.Unlock()
	}

	// failures are collected instead of returned so one slow or broken
	// endpoint does not cancel the others
	var g errgroup.Group
	g.SetLimit(c.workers)

	g.Go(func() error {
		balance, err := c.api.GetBalance(ctx)
		if err != nil {
			fail(domain.FetchBalance, err)
			return nil
		}
		snap.Balance = balance
		return nil
	})
	g.Go(func() error {
		price, err := c.api.GetPrice(ctx, c.pair)
		if err != nil {
			fail(domain.FetchPrice, err)
			return nil
		}
		snap.Price = price
		return nil
	})
	g.Go(func() error {
		positions, err := c.api.GetPositions(ctx, c.pair)
		if err != nil {
			fail(domain.FetchPositions, err)
			return nil
		}
		snap.Positions = positions
		return nil
	})
	_ = g.Wait()

	snap.Missing = missing

	c.mu.Lock()
	if !c.hasSnap || gen >= c.snapGen {
		c.snap = snap
		c.snapGen = gen
		c.hasSnap = true
	}
	c.mu.Unlock()

	c.logger.Debug("market state refreshed",
		zap.String("balance", snap.Balance.String()),
		zap.String("price", snap.Price.String()),
		zap.String("long", snap.Positions.Long.String()),
		zap.String("short", snap.Positions.Short.String()),
		zap.Strings("missing", snap.Missing),
	)

	return snap
}
