package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/config"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

const wizardTitle = "ALERTBRIDGE CONFIG WIZARD"

// Answers collected by the wizard, kept as strings the way they were typed.
type Answers struct {
	Platform          string
	Pair              string
	QuantityStep      string
	Leverage          string
	CapitalFraction   string
	MinNotional       string
	PyramidingCap     string
	DedupWindow       string
	ListenAddr        string
	KeepaliveURL      string
	SimulateBalance   string
	KeepaliveInterval string
}

// DefaultAnswers prefilled values shown in the forms.
func DefaultAnswers() Answers {
	return Answers{
		Platform:          config.PlatformBitget,
		Pair:              "WLFI_USDT",
		QuantityStep:      "1",
		Leverage:          "2",
		CapitalFraction:   "0.99",
		MinNotional:       "5",
		PyramidingCap:     "1",
		DedupWindow:       "1s",
		ListenAddr:        ":8080",
		KeepaliveInterval: "14m",
		SimulateBalance:   "1000",
	}
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := DefaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Route your alerts to the exchange.\n"))

	// platform
	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Bitget (USDT-M futures)", config.PlatformBitget),
					huh.NewOption("Binance (USDT-M futures)", config.PlatformBinance),
					huh.NewOption("Bybit (linear)", config.PlatformBybit),
					huh.NewOption("Hyperliquid (perps)", config.PlatformHyperliquid),
					huh.NewOption("Simulation", config.PlatformSimulate),
				).
				Value(&a.Platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// instrument
	screen("STEP 2: INSTRUMENT")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. WLFI_USDT)").
				Value(&a.Pair).
				Validate(validatePair),
			huh.NewInput().
				Title("Quantity Step").
				Description("Exchange lot size, order quantities are rounded down to it").
				Value(&a.QuantityStep).
				Validate(validatePositive),
		),
	).Run()
	if err != nil {
		return err
	}

	// sizing
	screen("STEP 3: SIZING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Leverage").
				Value(&a.Leverage).
				Validate(validateLeverage),
			huh.NewInput().
				Title("Capital Fraction").
				Description("Share of available balance per entry (0-1]").
				Value(&a.CapitalFraction).
				Validate(validateFraction),
			huh.NewInput().
				Title("Min Notional").
				Description("Smallest leveraged exposure worth an order").
				Value(&a.MinNotional),
			huh.NewInput().
				Title("Pyramiding Cap").
				Description("Max entries per side (1 disables pyramiding)").
				Value(&a.PyramidingCap),
		),
	).Run()
	if err != nil {
		return err
	}

	// server
	screen("STEP 4: SERVER")
	fields := []huh.Field{
		huh.NewInput().
			Title("Listen Address").
			Value(&a.ListenAddr),
		huh.NewInput().
			Title("Dedup Window").
			Description("Duration string (e.g. 1s, 500ms)").
			Value(&a.DedupWindow).
			Validate(validateDuration),
		huh.NewInput().
			Title("Keep-alive URL").
			Description("Public /health URL to ping, empty disables").
			Value(&a.KeepaliveURL),
	}
	if a.Platform == config.PlatformSimulate {
		fields = append(fields, huh.NewInput().
			Title("Initial Balance").
			Value(&a.SimulateBalance).
			Validate(validatePositive),
		)
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	// confirmation
	screen("FINAL CONFIRMATION")

	summary := fmt.Sprintf(
		"Platform: %s\nPair: %s\nLeverage: %sx\nFraction: %s\nPyramiding: %s\n",
		a.Platform, a.Pair, a.Leverage, a.CapitalFraction, a.PyramidingCap,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := Write(path, a); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting bridge...", path)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

// Write renders answers as a YAML config file.
func Write(path string, a Answers) error {
	cfg, err := a.ConfigTmp()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// ConfigTmp converts answers into the file representation, starting from defaults.
func (a Answers) ConfigTmp() (config.ConfigTmp, error) {
	var leverage, pyramiding int
	if _, err := fmt.Sscanf(a.Leverage, "%d", &leverage); err != nil {
		return config.ConfigTmp{}, fmt.Errorf("leverage must be an integer: %w", err)
	}
	if _, err := fmt.Sscanf(a.PyramidingCap, "%d", &pyramiding); err != nil {
		return config.ConfigTmp{}, fmt.Errorf("pyramiding cap must be an integer: %w", err)
	}
	dedupWindow, err := time.ParseDuration(a.DedupWindow)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("dedup window: %w", err)
	}
	keepalive, err := time.ParseDuration(a.KeepaliveInterval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("keep-alive interval: %w", err)
	}

	cfg, err := config.DefaultTmp()
	if err != nil {
		return config.ConfigTmp{}, err
	}
	cfg.Platform = a.Platform
	cfg.Pair = a.Pair
	cfg.QuantityStep = a.QuantityStep
	cfg.Leverage = leverage
	cfg.CapitalFraction = a.CapitalFraction
	cfg.MinNotional = a.MinNotional
	cfg.PyramidingCap = pyramiding
	cfg.DedupWindow = dedupWindow
	cfg.ListenAddr = a.ListenAddr
	cfg.KeepaliveURL = a.KeepaliveURL
	cfg.KeepaliveInterval = keepalive
	cfg.SimulateBalance = a.SimulateBalance
	return cfg, nil
}

func validatePair(s string) error {
	if s == "" {
		return fmt.Errorf("pair cannot be empty")
	}
	if _, err := domain.ParsePair(s); err != nil {
		return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. WLFI_USDT)")
	}
	return nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validateFraction(s string) error {
	if err := validatePositive(s); err != nil {
		return err
	}
	if decimal.RequireFromString(s).GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must not exceed 1")
	}
	return nil
}

func validateLeverage(s string) error {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 1 || n > 125 {
		return fmt.Errorf("must be between 1 and 125")
	}
	return nil
}

func validateDuration(s string) error {
	_, err := time.ParseDuration(s)
	return err
}
