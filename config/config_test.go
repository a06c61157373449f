package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "PLATFORM", "PAIR", "LEVERAGE"} {
		t.Setenv(k, "")
	}
}

func TestGet_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Get("")
	require.NoError(t, err)

	assert.Equal(t, PlatformBitget, cfg.Platform)
	assert.Equal(t, domain.Pair{From: "WLFI", To: "USDT"}, cfg.Pair)
	assert.Equal(t, 2, cfg.Leverage)
	assert.True(t, decimal.RequireFromString("0.99").Equal(cfg.CapitalFraction))
	assert.True(t, decimal.NewFromInt(5).Equal(cfg.MinNotional))
	assert.True(t, decimal.NewFromInt(1).Equal(cfg.QuantityStep))
	assert.Equal(t, 300*time.Millisecond, cfg.CacheTTL)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.True(t, cfg.DedupStrict)
	assert.Equal(t, 1, cfg.PyramidingCap)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 2, cfg.ReadRetries)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 14*time.Minute, cfg.KeepaliveInterval)
}

func TestGet_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
platform: simulate
pair: doge_usdt
quantity_step: "0.1"
leverage: 5
capital_fraction: "0.5"
min_notional: "10"
cache_ttl: 1s
dedup_window: 2s
dedup_strict: false
pyramiding_cap: 3
close_confirm_attempts: 0
keepalive_interval: 0s
keepalive_url: https://bridge.example.com/health
simulate_balance: "250"
`)

	cfg, err := Get(path)
	require.NoError(t, err)

	assert.Equal(t, PlatformSimulate, cfg.Platform)
	assert.Equal(t, domain.Pair{From: "DOGE", To: "USDT"}, cfg.Pair)
	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.QuantityStep))
	assert.Equal(t, 5, cfg.Leverage)
	assert.True(t, decimal.RequireFromString("0.5").Equal(cfg.CapitalFraction))
	assert.Equal(t, time.Second, cfg.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.DedupWindow)
	assert.False(t, cfg.DedupStrict)
	assert.Equal(t, 3, cfg.PyramidingCap)
	assert.Equal(t, 0, cfg.CloseConfirmAttempts)
	assert.Zero(t, cfg.KeepaliveInterval)
	assert.Equal(t, "https://bridge.example.com/health", cfg.KeepaliveURL)
	assert.True(t, decimal.NewFromInt(250).Equal(cfg.SimulateBalance))
}

func TestGet_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "platform: bitget\npair: WLFI_USDT\nleverage: 2\n")
	t.Setenv("PORT", "10000")
	t.Setenv("PLATFORM", "binance")
	t.Setenv("PAIR", "BTC_USDT")
	t.Setenv("LEVERAGE", "7")

	cfg, err := Get(path)
	require.NoError(t, err)
	assert.Equal(t, ":10000", cfg.ListenAddr)
	assert.Equal(t, PlatformBinance, cfg.Platform)
	assert.Equal(t, "BTCUSDT", cfg.Pair.Symbol())
	assert.Equal(t, 7, cfg.Leverage)
}

func TestGet_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown platform", yaml: "platform: kraken\n"},
		{name: "pair without underscore", yaml: "pair: BTCUSDT\n"},
		{name: "fraction above one", yaml: "capital_fraction: \"1.5\"\n"},
		{name: "zero step", yaml: "quantity_step: \"0\"\n"},
		{name: "negative min notional", yaml: "min_notional: \"-1\"\n"},
		{name: "leverage out of range", yaml: "leverage: 500\n"},
		{name: "bad keepalive url", yaml: "keepalive_url: not a url\n"},
		{name: "broken yaml", yaml: "platform: [\n"},
		{name: "bad leverage env", yaml: "", env: map[string]string{"LEVERAGE": "ten"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Get(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCredentialsValidate(t *testing.T) {
	full := Credentials{
		BitgetAPIKey:     "k",
		BitgetAPISecret:  "s",
		BitgetPassphrase: "p",
		BinanceAPIKey:    "k",
		BinanceAPISecret: "s",
		BybitAPIKey:      "k",
		BybitAPISecret:   "s",
		HyperliquidKey:   "0xabc",
	}

	for _, platform := range []string{PlatformBitget, PlatformBinance, PlatformBybit, PlatformHyperliquid, PlatformSimulate} {
		assert.NoError(t, full.Validate(platform), platform)
	}

	noPassphrase := full
	noPassphrase.BitgetPassphrase = ""
	err := noPassphrase.Validate(PlatformBitget)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCredentialsMissing))
	assert.Contains(t, err.Error(), "BITGET_API_PASSPHRASE")

	assert.True(t, errors.Is(Credentials{}.Validate(PlatformBybit), domain.ErrCredentialsMissing))
	assert.NoError(t, Credentials{}.Validate(PlatformSimulate))
	assert.Error(t, full.Validate("kraken"))
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ALERTBRIDGE_TEST_VAR=from-dotenv\n"), 0o600))
	t.Setenv("ALERTBRIDGE_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("ALERTBRIDGE_TEST_VAR"))

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("ALERTBRIDGE_TEST_VAR"))
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"--config", "bridge.yaml"})
	require.NoError(t, err)
	assert.Equal(t, Flags{ConfigPath: "bridge.yaml"}, f)

	f, err = ParseFlags([]string{"--setup"})
	require.NoError(t, err)
	assert.True(t, f.Setup)
	assert.Equal(t, GeneratedConfigFile, f.ConfigPath)

	_, err = ParseFlags([]string{"--unknown"})
	assert.Error(t, err)
}
