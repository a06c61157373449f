package trader

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/alertbridge/internal/clients"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	tradingapiMock "github.com/vadiminshakov/alertbridge/mocks/tradingapi"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: errors.Wrap(context.DeadlineExceeded, "get balance"), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "bitget rate limit", err: &clients.BitgetAPIError{HTTPStatus: http.StatusTooManyRequests, Code: "429"}, want: true},
		{name: "bitget 5xx", err: errors.Wrap(&clients.BitgetAPIError{HTTPStatus: http.StatusBadGateway}, "ticker"), want: true},
		{name: "bitget business error", err: &clients.BitgetAPIError{HTTPStatus: http.StatusOK, Code: "40762"}, want: false},
		{name: "binance too many requests", err: &common.APIError{Code: -1003, Message: "Too many requests"}, want: true},
		{name: "binance bad symbol", err: &common.APIError{Code: -1121, Message: "Invalid symbol"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRetryReads(t *testing.T) {
	pair := domain.Pair{From: "DOGE", To: "USDT"}
	transient := &clients.BitgetAPIError{HTTPStatus: http.StatusServiceUnavailable}

	t.Run("read retried until success", func(t *testing.T) {
		api := tradingapiMock.NewTradingAPI(t)
		api.On("GetPrice", mock.Anything, pair).Return(decimal.Zero, transient).Twice()
		api.On("GetPrice", mock.Anything, pair).Return(decimal.NewFromInt(2), nil).Once()

		rt := RetryReads(api, NewReadRetrier(2, time.Millisecond), time.Second)
		price, err := rt.GetPrice(context.Background(), pair)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(2)))
	})

	t.Run("permanent read error not retried", func(t *testing.T) {
		api := tradingapiMock.NewTradingAPI(t)
		api.On("GetBalance", mock.Anything).Return(decimal.Zero, errors.New("invalid api key")).Once()

		rt := RetryReads(api, NewReadRetrier(2, time.Millisecond), time.Second)
		_, err := rt.GetBalance(context.Background())
		assert.Error(t, err)
		api.AssertNumberOfCalls(t, "GetBalance", 1)
	})

	t.Run("retry budget exhausted", func(t *testing.T) {
		api := tradingapiMock.NewTradingAPI(t)
		api.On("GetPositions", mock.Anything, pair).Return(domain.Positions{}, transient).Times(3)

		rt := RetryReads(api, NewReadRetrier(2, time.Millisecond), time.Second)
		_, err := rt.GetPositions(context.Background(), pair)
		assert.Error(t, err)
		api.AssertNumberOfCalls(t, "GetPositions", 3)
	})

	t.Run("orders are never retried", func(t *testing.T) {
		api := tradingapiMock.NewTradingAPI(t)
		api.On("PlaceOrder", mock.Anything, mock.Anything).Return("", transient).Once()
		api.On("SetLeverage", mock.Anything, pair, 2, domain.PositionSideLong).Return(transient).Once()

		rt := RetryReads(api, NewReadRetrier(5, time.Millisecond), time.Second)
		_, err := rt.PlaceOrder(context.Background(), domain.Order{Pair: pair, Action: domain.ActionOpenLong, Quantity: decimal.NewFromInt(1)})
		assert.Error(t, err)
		assert.Error(t, rt.SetLeverage(context.Background(), pair, 2, domain.PositionSideLong))

		api.AssertNumberOfCalls(t, "PlaceOrder", 1)
		api.AssertNumberOfCalls(t, "SetLeverage", 1)
	})

	t.Run("per call timeout applied", func(t *testing.T) {
		api := tradingapiMock.NewTradingAPI(t)
		api.On("GetBalance", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(decimal.NewFromInt(1), nil).Once()

		rt := RetryReads(api, NewReadRetrier(0, time.Millisecond), time.Second)
		_, err := rt.GetBalance(context.Background())
		require.NoError(t, err)
	})
}
