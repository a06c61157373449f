// Package config loads the bridge configuration from a YAML file, .env and the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"gopkg.in/yaml.v3"
)

// supported trading platforms
const (
	PlatformBitget      = "bitget"
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"
	PlatformSimulate    = "simulate"
)

// Config is the parsed configuration of one bridge instance.
type Config struct {
	Platform        string
	Pair            domain.Pair
	QuantityStep    decimal.Decimal
	Leverage        int
	CapitalFraction decimal.Decimal
	MinNotional     decimal.Decimal

	CacheTTL      time.Duration
	DedupWindow   time.Duration
	DedupStrict   bool
	PyramidingCap int
	FetchWorkers  int

	APITimeout           time.Duration
	RequestTimeout       time.Duration
	CloseConfirmAttempts int
	CloseConfirmInterval time.Duration
	ReadRetries          int
	ReadRetryInterval    time.Duration

	ListenAddr        string
	KeepaliveInterval time.Duration
	KeepaliveURL      string
	HyperliquidURL    string
	SimulateBalance   decimal.Decimal

	Credentials Credentials
}

// ConfigTmp mirrors the YAML file. Decimals stay strings until parsed.
type ConfigTmp struct {
	Platform             string        `yaml:"platform" default:"bitget" validate:"oneof=bitget binance bybit hyperliquid simulate"`
	Pair                 string        `yaml:"pair" default:"WLFI_USDT" validate:"required,contains=_"`
	QuantityStep         string        `yaml:"quantity_step" default:"1" validate:"required,numeric"`
	Leverage             int           `yaml:"leverage" default:"2" validate:"min=1,max=125"`
	CapitalFraction      string        `yaml:"capital_fraction" default:"0.99" validate:"required,numeric"`
	MinNotional          string        `yaml:"min_notional" default:"5" validate:"required,numeric"`
	CacheTTL             time.Duration `yaml:"cache_ttl" default:"300ms" validate:"gte=0"`
	DedupWindow          time.Duration `yaml:"dedup_window" default:"1s" validate:"gte=0"`
	DedupStrict          bool          `yaml:"dedup_strict" default:"true"`
	PyramidingCap        int           `yaml:"pyramiding_cap" default:"1" validate:"min=1"`
	FetchWorkers         int           `yaml:"fetch_workers" default:"4" validate:"min=1"`
	APITimeout           time.Duration `yaml:"api_timeout" default:"10s" validate:"gt=0"`
	RequestTimeout       time.Duration `yaml:"request_timeout" default:"30s" validate:"gt=0"`
	CloseConfirmAttempts int           `yaml:"close_confirm_attempts" default:"5" validate:"min=0"`
	CloseConfirmInterval time.Duration `yaml:"close_confirm_interval" default:"200ms" validate:"gte=0"`
	ReadRetries          int           `yaml:"read_retries" default:"2" validate:"min=0,max=10"`
	ReadRetryInterval    time.Duration `yaml:"read_retry_interval" default:"200ms" validate:"gte=0"`
	ListenAddr           string        `yaml:"listen_addr" default:":8080" validate:"required"`
	KeepaliveInterval    time.Duration `yaml:"keepalive_interval" default:"14m" validate:"gte=0"`
	KeepaliveURL         string        `yaml:"keepalive_url,omitempty" validate:"omitempty,url"`
	HyperliquidURL       string        `yaml:"hyperliquid_url" default:"https://api.hyperliquid.xyz" validate:"required,url"`
	SimulateBalance      string        `yaml:"simulate_balance" default:"1000" validate:"required,numeric"`
}

var validate = validator.New()

// LoadEnv reads .env files into the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load env file %s", f)
		}
	}
	return nil
}

// DefaultTmp returns the file representation filled with defaults.
func DefaultTmp() (ConfigTmp, error) {
	var tmp ConfigTmp
	if err := defaults.Set(&tmp); err != nil {
		return ConfigTmp{}, errors.Wrap(err, "apply config defaults")
	}
	return tmp, nil
}

// Get loads the configuration. An empty path means defaults plus environment.
func Get(path string) (Config, error) {
	// defaults first so that explicit zero values in the file survive
	tmp, err := DefaultTmp()
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, errors.Wrapf(err, "parse yaml config %s", path)
		}
	}

	if err := applyEnv(&tmp); err != nil {
		return Config{}, err
	}
	if err := validate.Struct(tmp); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}

	return tmp.parse()
}

// applyEnv overrides file values with PORT, PLATFORM, PAIR and LEVERAGE.
func applyEnv(tmp *ConfigTmp) error {
	if port := os.Getenv("PORT"); port != "" {
		tmp.ListenAddr = ":" + port
	}
	if platform := os.Getenv("PLATFORM"); platform != "" {
		tmp.Platform = platform
	}
	if pair := os.Getenv("PAIR"); pair != "" {
		tmp.Pair = pair
	}
	if lev := os.Getenv("LEVERAGE"); lev != "" {
		n, err := strconv.Atoi(lev)
		if err != nil {
			return errors.Wrapf(err, "incorrect LEVERAGE env %q (must be an integer)", lev)
		}
		tmp.Leverage = n
	}
	return nil
}

func (c ConfigTmp) parse() (Config, error) {
	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'pair' param in yaml config: %s", c.Pair)
	}

	step, err := positiveDecimal("quantity_step", c.QuantityStep)
	if err != nil {
		return Config{}, err
	}
	fraction, err := positiveDecimal("capital_fraction", c.CapitalFraction)
	if err != nil {
		return Config{}, err
	}
	if fraction.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, errors.Errorf("incorrect 'capital_fraction' param in yaml config: %s (must be in (0, 1])", c.CapitalFraction)
	}
	minNotional, err := decimal.NewFromString(c.MinNotional)
	if err != nil || minNotional.IsNegative() {
		return Config{}, errors.Errorf("incorrect 'min_notional' param in yaml config: %s (must be a non-negative decimal)", c.MinNotional)
	}
	balance, err := positiveDecimal("simulate_balance", c.SimulateBalance)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Platform:             c.Platform,
		Pair:                 pair,
		QuantityStep:         step,
		Leverage:             c.Leverage,
		CapitalFraction:      fraction,
		MinNotional:          minNotional,
		CacheTTL:             c.CacheTTL,
		DedupWindow:          c.DedupWindow,
		DedupStrict:          c.DedupStrict,
		PyramidingCap:        c.PyramidingCap,
		FetchWorkers:         c.FetchWorkers,
		APITimeout:           c.APITimeout,
		RequestTimeout:       c.RequestTimeout,
		CloseConfirmAttempts: c.CloseConfirmAttempts,
		CloseConfirmInterval: c.CloseConfirmInterval,
		ReadRetries:          c.ReadRetries,
		ReadRetryInterval:    c.ReadRetryInterval,
		ListenAddr:           c.ListenAddr,
		KeepaliveInterval:    c.KeepaliveInterval,
		KeepaliveURL:         c.KeepaliveURL,
		HyperliquidURL:       c.HyperliquidURL,
		SimulateBalance:      balance,
		Credentials:          CredentialsFromEnv(),
	}, nil
}

func positiveDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, errors.Errorf("incorrect '%s' param in yaml config: %s (must be a positive decimal)", name, s)
	}
	return d, nil
}

// GeneratedConfigFile is where the setup wizard writes its result.
const GeneratedConfigFile = "config.gen.yaml"
