package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/marketstate"
	"github.com/vadiminshakov/alertbridge/internal/services/positionstate"
	tradingapiMock "github.com/vadiminshakov/alertbridge/mocks/tradingapi"
	"github.com/vadiminshakov/alertbridge/pkg/poller"
	"go.uber.org/zap"
)

var testPair = domain.Pair{From: "DOGE", To: "USDT"}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func orderMatcher(action domain.Action, qty decimal.Decimal) interface{} {
	return mock.MatchedBy(func(o domain.Order) bool {
		return o.Action == action && o.Quantity.Equal(qty) && o.Pair == testPair && o.ClientOrderID != ""
	})
}

// orderLog records PlaceOrder calls in arrival order.
type orderLog struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (l *orderLog) record(args mock.Arguments) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, args.Get(1).(domain.Order))
}

func (l *orderLog) actions() []domain.Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Action, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.Action)
	}
	return out
}

type coordinatorFixture struct {
	api     *tradingapiMock.TradingAPI
	cache   *marketstate.Cache
	tracker *positionstate.Tracker
	coord   *Coordinator
	log     *orderLog
}

func newCoordinatorFixture(t *testing.T, cap int, confirmAttempts int) *coordinatorFixture {
	api := tradingapiMock.NewTradingAPI(t)
	cache := marketstate.NewCache(zap.NewNop(), api, testPair, time.Minute, 4)
	tracker := positionstate.New(cap)
	coord := NewCoordinator(zap.NewNop(), api, cache, tracker, Settings{
		Pair:            testPair,
		Leverage:        2,
		CapitalFraction: dec("0.99"),
		MinNotional:     dec("5"),
		QuantityStep:    dec("1"),
		CloseConfirm:    poller.New(confirmAttempts, time.Millisecond),
	})
	return &coordinatorFixture{api: api, cache: cache, tracker: tracker, coord: coord, log: &orderLog{}}
}

func (f *coordinatorFixture) expectOrder(action domain.Action, qty decimal.Decimal, orderID string, err error) {
	f.api.On("PlaceOrder", mock.Anything, orderMatcher(action, qty)).
		Run(f.log.record).
		Return(orderID, err).
		Once()
}

func (f *coordinatorFixture) expectSnapshot(balance, price string, positions domain.Positions) {
	f.api.On("GetBalance", mock.Anything).Return(dec(balance), nil).Once()
	f.api.On("GetPrice", mock.Anything, testPair).Return(dec(price), nil).Once()
	f.api.On("GetPositions", mock.Anything, testPair).Return(positions, nil).Once()
}

func flatSnapshot(balance, price string) domain.MarketSnapshot {
	return domain.MarketSnapshot{Balance: dec(balance), Price: dec(price), FetchedAt: time.Now()}
}

func signalFor(desired domain.MarketPosition) domain.Signal {
	action := domain.SignalActionBuy
	if desired != domain.MarketPositionLong {
		action = domain.SignalActionSell
	}
	return domain.Signal{Action: action, Desired: desired, Source: domain.SignalSourceStructured}
}

func TestCoordinator_OpenFromFlat(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
	f.expectOrder(domain.ActionOpenLong, dec("99"), "o-1", nil)

	out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), flatSnapshot("100", "2"))
	require.NoError(t, err)

	assert.Equal(t, domain.StateFlat, out.Previous)
	assert.True(t, dec("99").Equal(out.Opened))
	require.Len(t, out.Orders, 1)
	assert.Equal(t, "o-1", out.Orders[0].OrderID)
	assert.Equal(t, domain.OrderSideBuy, out.Orders[0].Side)
	assert.Equal(t, 1, f.tracker.Entries(domain.PositionSideLong))
	assert.Equal(t, 1, out.Entries)
}

func TestCoordinator_OpenShortFromFlat(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideShort).Return(nil).Once()
	f.expectOrder(domain.ActionOpenShort, dec("99"), "o-1", nil)

	out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionShort), flatSnapshot("100", "2"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSideSell, out.Orders[0].Side)
	assert.Equal(t, 1, f.tracker.Entries(domain.PositionSideShort))
}

func TestCoordinator_ReversalClosesOppositeFirst(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)
	f.tracker.RecordOpen(domain.PositionSideShort)

	snap := flatSnapshot("100", "2")
	snap.Positions = domain.Positions{Short: dec("50")}

	f.expectOrder(domain.ActionCloseShort, dec("50"), "close-1", nil)
	// confirmation read after the close: flat, balance unchanged
	f.expectSnapshot("100", "2", domain.Positions{})
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
	f.expectOrder(domain.ActionOpenLong, dec("99"), "open-1", nil)

	out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
	require.NoError(t, err)

	assert.Equal(t, []domain.Action{domain.ActionCloseShort, domain.ActionOpenLong}, f.log.actions())
	assert.Equal(t, domain.StateShort, out.Previous)
	require.Len(t, out.Orders, 2)
	assert.True(t, out.Orders[0].Action.ReduceOnly())
	assert.Equal(t, domain.OrderSideBuy, out.Orders[0].Side)
	assert.False(t, out.Orders[1].Action.ReduceOnly())

	long, short := f.tracker.Snapshot()
	assert.Equal(t, 1, long)
	assert.Equal(t, 0, short)
}

func TestCoordinator_ReversalUsesBalanceAfterClose(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)

	snap := flatSnapshot("10", "2")
	snap.Positions = domain.Positions{Long: dec("40")}

	f.expectOrder(domain.ActionCloseLong, dec("40"), "close-1", nil)
	// released margin shows up in the forced read: 50 * 0.99 * 2 / 2 = 49.5 -> 49
	f.expectSnapshot("50", "2", domain.Positions{})
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideShort).Return(nil).Once()
	f.expectOrder(domain.ActionOpenShort, dec("49"), "open-1", nil)

	out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionShort), snap)
	require.NoError(t, err)
	assert.True(t, dec("49").Equal(out.Opened))
}

func TestCoordinator_ReversalCloseNotConfirmed(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 2)

	snap := flatSnapshot("100", "2")
	snap.Positions = domain.Positions{Short: dec("50")}

	f.expectOrder(domain.ActionCloseShort, dec("50"), "close-1", nil)
	// exchange keeps reporting the short for both confirmation attempts
	f.expectSnapshot("100", "2", domain.Positions{Short: dec("50")})
	f.expectSnapshot("100", "2", domain.Positions{Short: dec("50")})
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
	f.expectOrder(domain.ActionOpenLong, dec("99"), "open-1", nil)

	_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
	require.NoError(t, err)
	f.api.AssertNumberOfCalls(t, "GetPositions", 2)
}

func TestCoordinator_ReversalWithoutConfirmationStillRereadsBalance(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 0)

	snap := flatSnapshot("100", "2")
	snap.Positions = domain.Positions{Short: dec("50")}

	f.expectOrder(domain.ActionCloseShort, dec("50"), "close-1", nil)
	f.expectSnapshot("100", "2", domain.Positions{})
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
	f.expectOrder(domain.ActionOpenLong, dec("99"), "open-1", nil)

	_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
	require.NoError(t, err)
	f.api.AssertNumberOfCalls(t, "GetBalance", 1)
}

func TestCoordinator_Flat(t *testing.T) {
	t.Run("nothing open places no orders and resets tracker", func(t *testing.T) {
		f := newCoordinatorFixture(t, 2, 3)
		f.tracker.RecordOpen(domain.PositionSideLong)

		out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionFlat), flatSnapshot("100", "2"))
		require.NoError(t, err)

		assert.Empty(t, out.Orders)
		assert.Equal(t, "already flat", out.Message)
		assert.Equal(t, 0, f.tracker.Entries(domain.PositionSideLong))
		f.api.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})

	t.Run("closes both sides reduce only", func(t *testing.T) {
		f := newCoordinatorFixture(t, 2, 3)
		snap := flatSnapshot("100", "2")
		snap.Positions = domain.Positions{Long: dec("10"), Short: dec("3")}

		f.expectOrder(domain.ActionCloseLong, dec("10"), "c-1", nil)
		f.expectOrder(domain.ActionCloseShort, dec("3"), "c-2", nil)

		out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionFlat), snap)
		require.NoError(t, err)

		require.Len(t, out.Orders, 2)
		assert.Equal(t, domain.OrderSideSell, out.Orders[0].Side)
		assert.Equal(t, domain.OrderSideBuy, out.Orders[1].Side)
		for _, o := range f.log.orders {
			assert.True(t, o.ReduceOnly())
		}
	})

	t.Run("close failure surfaces as order placement error", func(t *testing.T) {
		f := newCoordinatorFixture(t, 2, 3)
		snap := flatSnapshot("100", "2")
		snap.Positions = domain.Positions{Long: dec("10")}

		f.tracker.RecordOpen(domain.PositionSideLong)
		f.tracker.RecordOpen(domain.PositionSideLong)
		f.expectOrder(domain.ActionCloseLong, dec("10"), "", errors.New("exchange down"))

		_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionFlat), snap)
		assert.ErrorIs(t, err, domain.ErrOrderPlacement)
		assert.Equal(t, 2, f.tracker.Entries(domain.PositionSideLong))

		// the long is still open at the cap, another long must not add to it
		out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
		assert.ErrorIs(t, err, domain.ErrPyramidLimitReached)
		assert.Empty(t, out.Orders)
	})
}

func TestCoordinator_InsufficientExposure(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)
	f.coord.settings.CapitalFraction = dec("1")

	// 1.5 * 1 * 2 = 3 < 5
	_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), flatSnapshot("1.5", "2"))
	assert.ErrorIs(t, err, domain.ErrInsufficientExposure)
	f.api.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	f.api.AssertNotCalled(t, "SetLeverage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.tracker.Entries(domain.PositionSideLong))
}

func TestCoordinator_Pyramiding(t *testing.T) {
	t.Run("cap 1 skips when side already open", func(t *testing.T) {
		f := newCoordinatorFixture(t, 1, 3)
		snap := flatSnapshot("100", "2")
		snap.Positions = domain.Positions{Long: dec("99")}

		out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
		assert.ErrorIs(t, err, domain.ErrPyramidLimitReached)
		assert.Empty(t, out.Orders)
		assert.Equal(t, 1, out.Entries)
	})

	t.Run("cap 2 allows one more entry", func(t *testing.T) {
		f := newCoordinatorFixture(t, 2, 3)
		f.tracker.RecordOpen(domain.PositionSideLong)
		snap := flatSnapshot("100", "2")
		snap.Positions = domain.Positions{Long: dec("99")}

		f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
		f.expectOrder(domain.ActionOpenLong, dec("99"), "o-2", nil)

		out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
		require.NoError(t, err)
		assert.Equal(t, 2, out.Entries)

		_, err = f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
		assert.ErrorIs(t, err, domain.ErrPyramidLimitReached)
		assert.Equal(t, 2, f.tracker.Entries(domain.PositionSideLong))
	})

	t.Run("entries never exceed cap over many signals", func(t *testing.T) {
		f := newCoordinatorFixture(t, 2, 3)
		snap := flatSnapshot("100", "2")
		snap.Positions = domain.Positions{Short: dec("99")}

		f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideShort).Return(nil)
		f.api.On("PlaceOrder", mock.Anything, orderMatcher(domain.ActionOpenShort, dec("99"))).Return("o", nil)

		for i := 0; i < 10; i++ {
			_, _ = f.coord.Execute(context.Background(), signalFor(domain.MarketPositionShort), snap)
			assert.LessOrEqual(t, f.tracker.Entries(domain.PositionSideShort), 2)
		}
		f.api.AssertNumberOfCalls(t, "PlaceOrder", 2)
	})

	t.Run("stale tracker is reset when exchange is flat", func(t *testing.T) {
		f := newCoordinatorFixture(t, 1, 3)
		f.tracker.RecordOpen(domain.PositionSideLong)

		f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
		f.expectOrder(domain.ActionOpenLong, dec("99"), "o-1", nil)

		out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), flatSnapshot("100", "2"))
		require.NoError(t, err)
		assert.Equal(t, 1, out.Entries)
	})
}

func TestCoordinator_OrderFailure(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(nil).Once()
	f.expectOrder(domain.ActionOpenLong, dec("99"), "", errors.New("insufficient margin"))

	out, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), flatSnapshot("100", "2"))
	assert.ErrorIs(t, err, domain.ErrOrderPlacement)
	assert.Empty(t, out.Orders)
	assert.Equal(t, 0, f.tracker.Entries(domain.PositionSideLong))
	f.api.AssertNumberOfCalls(t, "PlaceOrder", 1)
}

func TestCoordinator_LeverageFailureIsNotFatal(t *testing.T) {
	f := newCoordinatorFixture(t, 1, 3)
	f.api.On("SetLeverage", mock.Anything, testPair, 2, domain.PositionSideLong).Return(errors.New("leverage not modified")).Once()
	f.expectOrder(domain.ActionOpenLong, dec("99"), "o-1", nil)

	_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), flatSnapshot("100", "2"))
	require.NoError(t, err)
}

func TestCoordinator_MarketDataUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		missing []string
		price   string
	}{
		{name: "positions missing", missing: []string{domain.FetchPositions}, price: "2"},
		{name: "price missing", missing: []string{domain.FetchPrice}, price: "0"},
		{name: "zero price", price: "0"},
		{name: "balance missing", missing: []string{domain.FetchBalance}, price: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(t, 1, 3)
			snap := flatSnapshot("100", tt.price)
			snap.Missing = tt.missing

			_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionLong), snap)
			assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
			f.api.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCoordinator_UniqueClientOrderIDs(t *testing.T) {
	f := newCoordinatorFixture(t, 2, 3)
	snap := flatSnapshot("100", "2")
	snap.Positions = domain.Positions{Long: dec("10"), Short: dec("3")}

	f.api.On("PlaceOrder", mock.Anything, mock.Anything).Run(f.log.record).Return("id", nil).Twice()

	_, err := f.coord.Execute(context.Background(), signalFor(domain.MarketPositionFlat), snap)
	require.NoError(t, err)
	require.Len(t, f.log.orders, 2)
	assert.NotEqual(t, f.log.orders[0].ClientOrderID, f.log.orders[1].ClientOrderID)
}
