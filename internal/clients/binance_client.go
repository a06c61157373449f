package clients

import (
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

// NewBinanceFuturesClient returns a USDⓈ-M futures client. Empty credentials
// give a client limited to public market endpoints.
func NewBinanceFuturesClient(apiKey, apiSecret string, timeout time.Duration) *futures.Client {
	client := futures.NewClient(apiKey, apiSecret)
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	return client
}
