package trader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/alertbridge/internal/clients"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"go.uber.org/zap"
)

type bitgetStub struct {
	mu     sync.Mutex
	bodies map[string][]byte
}

func newBitgetServer(t *testing.T, reply map[string]string) (*httptest.Server, *bitgetStub) {
	stub := &bitgetStub{bodies: make(map[string][]byte)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.bodies[r.URL.Path] = body
		stub.mu.Unlock()

		resp, ok := reply[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"40404","msg":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, stub
}

func (s *bitgetStub) body(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

func TestBitgetTrader(t *testing.T) {
	pair := domain.Pair{From: "WLFI", To: "USDT"}
	srv, stub := newBitgetServer(t, map[string]string{
		"/api/v2/mix/account/accounts":         `{"code":"00000","data":[{"marginCoin":"USDC","available":"5"},{"marginCoin":"USDT","available":"100.5"}]}`,
		"/api/v2/mix/market/ticker":            `{"code":"00000","data":[{"symbol":"WLFIUSDT","lastPr":"0.2137"}]}`,
		"/api/v2/mix/position/single-position": `{"code":"00000","data":[{"symbol":"WLFIUSDT","holdSide":"short","total":"50"}]}`,
		"/api/v2/mix/account/set-leverage":     `{"code":"00000","data":{"longLeverage":"2"}}`,
		"/api/v2/mix/order/place-order":        `{"code":"00000","data":{"orderId":"1234567","clientOid":"cid-1"}}`,
	})

	client := clients.NewBitgetClient("k", "s", "p", time.Second, clients.WithBitgetBaseURL(srv.URL))
	tr := NewBitgetTrader(client, pair, zap.NewNop())
	ctx := context.Background()

	balance, err := tr.GetBalance(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.5").Equal(balance))

	price, err := tr.GetPrice(ctx, pair)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.2137").Equal(price))

	positions, err := tr.GetPositions(ctx, pair)
	require.NoError(t, err)
	assert.True(t, positions.Long.IsZero())
	assert.True(t, decimal.NewFromInt(50).Equal(positions.Short))

	require.NoError(t, tr.SetLeverage(ctx, pair, 2, domain.PositionSideLong))
	assert.JSONEq(t,
		`{"symbol":"WLFIUSDT","productType":"USDT-FUTURES","marginCoin":"USDT","leverage":"2","holdSide":"long"}`,
		string(stub.body("/api/v2/mix/account/set-leverage")))

	id, err := tr.PlaceOrder(ctx, domain.Order{Pair: pair, Action: domain.ActionCloseShort, Quantity: decimal.NewFromInt(50), ClientOrderID: "cid-1"})
	require.NoError(t, err)
	assert.Equal(t, "1234567", id)

	// field order on the wire is fixed
	assert.Equal(t,
		`{"symbol":"WLFIUSDT","productType":"USDT-FUTURES","marginMode":"crossed","marginCoin":"USDT","size":"50","side":"buy","orderType":"market","force":"gtc","reduceOnly":"YES","clientOid":"cid-1"}`,
		string(stub.body("/api/v2/mix/order/place-order")))
}

func TestBitgetTrader_OpenOrderIsNotReduceOnly(t *testing.T) {
	pair := domain.Pair{From: "WLFI", To: "USDT"}
	srv, stub := newBitgetServer(t, map[string]string{
		"/api/v2/mix/order/place-order": `{"code":"00000","data":{"orderId":"1"}}`,
	})
	tr := NewBitgetTrader(clients.NewBitgetClient("k", "s", "p", time.Second, clients.WithBitgetBaseURL(srv.URL)), pair, zap.NewNop())

	_, err := tr.PlaceOrder(context.Background(), domain.Order{Pair: pair, Action: domain.ActionOpenShort, Quantity: decimal.RequireFromString("12.5")})
	require.NoError(t, err)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(stub.body("/api/v2/mix/order/place-order"), &sent))
	assert.Equal(t, "sell", sent["side"])
	assert.Equal(t, "NO", sent["reduceOnly"])
	assert.Equal(t, "12.5", sent["size"])
	_, hasClientOid := sent["clientOid"]
	assert.False(t, hasClientOid)
}

func TestBitgetTrader_OrderRejected(t *testing.T) {
	pair := domain.Pair{From: "WLFI", To: "USDT"}
	srv, _ := newBitgetServer(t, map[string]string{
		"/api/v2/mix/order/place-order": `{"code":"40762","msg":"The order amount exceeds the balance"}`,
	})
	tr := NewBitgetTrader(clients.NewBitgetClient("k", "s", "p", time.Second, clients.WithBitgetBaseURL(srv.URL)), pair, zap.NewNop())

	_, err := tr.PlaceOrder(context.Background(), domain.Order{Pair: pair, Action: domain.ActionOpenLong, Quantity: decimal.NewFromInt(1)})
	var apiErr *clients.BitgetAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "40762", apiErr.Code)
	assert.False(t, IsTransient(err))
}
