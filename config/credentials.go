package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

// Credentials exchange secrets, read from the environment only.
type Credentials struct {
	BitgetAPIKey     string
	BitgetAPISecret  string
	BitgetPassphrase string
	BinanceAPIKey    string
	BinanceAPISecret string
	BybitAPIKey      string
	BybitAPISecret   string
	HyperliquidKey   string
}

// CredentialsFromEnv reads every known credential variable.
func CredentialsFromEnv() Credentials {
	return Credentials{
		BitgetAPIKey:     os.Getenv("BITGET_API_KEY"),
		BitgetAPISecret:  os.Getenv("BITGET_API_SECRET"),
		BitgetPassphrase: os.Getenv("BITGET_API_PASSPHRASE"),
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
		BybitAPIKey:      os.Getenv("BYBIT_API_KEY"),
		BybitAPISecret:   os.Getenv("BYBIT_API_SECRET"),
		HyperliquidKey:   os.Getenv("HYPERLIQUID_PRIVATE_KEY"),
	}
}

// Validate checks that the platform has all of its credentials set.
func (c Credentials) Validate(platform string) error {
	var missing []string
	need := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch platform {
	case PlatformBitget:
		need("BITGET_API_KEY", c.BitgetAPIKey)
		need("BITGET_API_SECRET", c.BitgetAPISecret)
		need("BITGET_API_PASSPHRASE", c.BitgetPassphrase)
	case PlatformBinance:
		need("BINANCE_API_KEY", c.BinanceAPIKey)
		need("BINANCE_API_SECRET", c.BinanceAPISecret)
	case PlatformBybit:
		need("BYBIT_API_KEY", c.BybitAPIKey)
		need("BYBIT_API_SECRET", c.BybitAPISecret)
	case PlatformHyperliquid:
		need("HYPERLIQUID_PRIVATE_KEY", c.HyperliquidKey)
	case PlatformSimulate:
	default:
		return errors.Errorf("unsupported platform %q", platform)
	}

	if len(missing) > 0 {
		return errors.Wrapf(domain.ErrCredentialsMissing, "%s requires %s", platform, strings.Join(missing, ", "))
	}
	return nil
}
