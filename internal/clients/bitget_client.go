package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	bitgetBaseURL     = "https://api.bitget.com"
	bitgetSuccessCode = "00000"
)

// BitgetAPIError is a non-success answer of the Bitget REST API.
type BitgetAPIError struct {
	HTTPStatus int
	Code       string
	Msg        string
}

func (e *BitgetAPIError) Error() string {
	return fmt.Sprintf("bitget: http %d, code %s: %s", e.HTTPStatus, e.Code, e.Msg)
}

type bitgetEnvelope struct {
	Code        string          `json:"code"`
	Msg         string          `json:"msg"`
	RequestTime int64           `json:"requestTime"`
	Data        json.RawMessage `json:"data"`
}

// BitgetClient signs and sends requests to the Bitget v2 REST API.
type BitgetClient struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	passphrase string
	logger     *zap.Logger
	now        func() time.Time
}

// BitgetOption configures a BitgetClient.
type BitgetOption func(*BitgetClient)

// WithBitgetBaseURL points the client at another host, e.g. a test server.
func WithBitgetBaseURL(u string) BitgetOption {
	return func(c *BitgetClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithBitgetLogger sets the logger used for request tracing.
func WithBitgetLogger(l *zap.Logger) BitgetOption {
	return func(c *BitgetClient) {
		c.logger = l
	}
}

// WithBitgetClock overrides the timestamp source used for signing.
func WithBitgetClock(now func() time.Time) BitgetOption {
	return func(c *BitgetClient) {
		c.now = now
	}
}

func NewBitgetClient(apiKey, apiSecret, passphrase string, timeout time.Duration, opts ...BitgetOption) *BitgetClient {
	c := &BitgetClient{
		http:       &http.Client{Timeout: timeout},
		baseURL:    bitgetBaseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get sends a signed GET request and decodes the data field into out.
func (c *BitgetClient) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON with a signed POST request and decodes the data field into out.
// body is marshaled once; the same bytes are signed, sent and logged.
func (c *BitgetClient) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal bitget request body")
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

// Sign returns base64(HMAC-SHA256(timestamp + METHOD + requestPath + body)).
func (c *BitgetClient) Sign(timestamp, method, requestPath string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(strings.ToUpper(method)))
	mac.Write([]byte(requestPath))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *BitgetClient) do(ctx context.Context, method, path string, query url.Values, body []byte, out interface{}) error {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, reader)
	if err != nil {
		return errors.Wrap(err, "build bitget request")
	}
	req.Header.Set("ACCESS-KEY", c.apiKey)
	req.Header.Set("ACCESS-SIGN", c.Sign(timestamp, method, requestPath, body))
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-PASSPHRASE", c.passphrase)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("locale", "en-US")

	c.logger.Debug("bitget request",
		zap.String("method", method),
		zap.String("path", requestPath),
		zap.ByteString("body", body),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "bitget %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read bitget response %s", path)
	}

	var env bitgetEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return &BitgetAPIError{HTTPStatus: resp.StatusCode, Msg: truncateBody(raw)}
		}
		return errors.Wrapf(err, "decode bitget response %s", path)
	}

	if resp.StatusCode/100 != 2 || env.Code != bitgetSuccessCode {
		return &BitgetAPIError{HTTPStatus: resp.StatusCode, Code: env.Code, Msg: env.Msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "decode bitget data %s", path)
	}
	return nil
}

func truncateBody(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}
