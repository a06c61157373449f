package clients

import (
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

// SimulateClient wraps a real exchange client for price data.
type SimulateClient struct {
	// use Binance futures public API for real market prices
	futuresClient *futures.Client
}

// NewSimulateClient creates a new simulate client.
func NewSimulateClient(timeout time.Duration) *SimulateClient {
	// create client without API keys for public data only
	return &SimulateClient{
		futuresClient: NewBinanceFuturesClient("", "", timeout),
	}
}

// FuturesClient returns the underlying Binance futures client.
func (c *SimulateClient) FuturesClient() *futures.Client {
	return c.futuresClient
}
