package trader

import (
	"context"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/clients"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/pkg/retrier"
)

// TradingAPI exchange account operations shared by all adapters.
type TradingAPI interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error)
	SetLeverage(ctx context.Context, pair domain.Pair, leverage int, side domain.PositionSide) error
	PlaceOrder(ctx context.Context, order domain.Order) (string, error)
}

// binance codes worth another attempt: disconnected, too many requests, backend timeout
var binanceTransientCodes = map[int64]struct{}{
	-1001: {},
	-1003: {},
	-1007: {},
}

// IsTransient reports whether err is a rate limit, a server side failure or a network timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var bitgetErr *clients.BitgetAPIError
	if errors.As(err, &bitgetErr) {
		return bitgetErr.HTTPStatus == http.StatusTooManyRequests || bitgetErr.HTTPStatus >= http.StatusInternalServerError
	}

	var binanceErr *common.APIError
	if errors.As(err, &binanceErr) {
		_, ok := binanceTransientCodes[binanceErr.Code]
		return ok
	}

	return false
}

// ReadRetryingTrader retries idempotent reads and bounds every call with a timeout.
// Leverage changes and orders go through exactly once.
type ReadRetryingTrader struct {
	api     TradingAPI
	retrier *retrier.Retrier
	timeout time.Duration
}

// RetryReads wraps api. timeout applies per attempt, zero disables it.
func RetryReads(api TradingAPI, r *retrier.Retrier, timeout time.Duration) *ReadRetryingTrader {
	return &ReadRetryingTrader{api: api, retrier: r, timeout: timeout}
}

// NewReadRetrier builds the default read policy: retries transient errors only.
func NewReadRetrier(retries int, interval time.Duration) *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(retries),
		retrier.WithInitialInterval(interval),
		retrier.WithRetryIf(IsTransient),
	)
}

func (t *ReadRetryingTrader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *ReadRetryingTrader) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return retrier.DoWithData(t.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		ctx, cancel := t.withTimeout(ctx)
		defer cancel()
		return t.api.GetBalance(ctx)
	})
}

func (t *ReadRetryingTrader) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return retrier.DoWithData(t.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		ctx, cancel := t.withTimeout(ctx)
		defer cancel()
		return t.api.GetPrice(ctx, pair)
	})
}

func (t *ReadRetryingTrader) GetPositions(ctx context.Context, pair domain.Pair) (domain.Positions, error) {
	return retrier.DoWithData(t.retrier, ctx, func(ctx context.Context) (domain.Positions, error) {
		ctx, cancel := t.withTimeout(ctx)
		defer cancel()
		return t.api.GetPositions(ctx, pair)
	})
}

func (t *ReadRetryingTrader) SetLeverage(ctx context.Context, pair domain.Pair, leverage int, side domain.PositionSide) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	return t.api.SetLeverage(ctx, pair, leverage, side)
}

func (t *ReadRetryingTrader) PlaceOrder(ctx context.Context, order domain.Order) (string, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	return t.api.PlaceOrder(ctx, order)
}
