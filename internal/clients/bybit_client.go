package clients

import (
	"net/http"
	"time"

	"github.com/hirokisan/bybit/v2"
)

func NewBybitClient(apiKey, apiSecret string, timeout time.Duration) *bybit.Client {
	client := bybit.NewClient().
		WithHTTPClient(&http.Client{Timeout: timeout}).
		WithAuth(apiKey, apiSecret)

	return client
}
