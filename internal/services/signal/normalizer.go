// Package signal turns inbound alert payloads into canonical signals.
package signal

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/alertbridge/internal/domain"
)

// webhookPayload inbound alert schema.
type webhookPayload struct {
	Action             *string     `json:"action"`
	MarketPosition     *string     `json:"marketPosition"`
	PrevMarketPosition *string     `json:"prevMarketPosition"`
	PositionSize       flexDecimal `json:"positionSize"`
	Timeframe          flexString  `json:"timeframe"`
	Price              flexDecimal `json:"price"`
}

// Normalizer parses raw webhook bodies.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize parses payload into a Signal.
// JSON objects go through the strict schema; anything else is resolved by keywords
// and may produce a non-actionable signal instead of an error.
func (n *Normalizer) Normalize(payload []byte, now time.Time) (domain.Signal, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return domain.Signal{}, errors.Wrap(domain.ErrMalformedSignal, "empty payload")
	}

	switch trimmed[0] {
	case '{':
		return parseStructured(trimmed, now)
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return domain.Signal{}, errors.Wrapf(domain.ErrMalformedSignal, "invalid json string: %v", err)
		}
		return parseHeuristic(text, now), nil
	case '[':
		return domain.Signal{}, errors.Wrap(domain.ErrMalformedSignal, "json array payload")
	default:
		return parseHeuristic(string(trimmed), now), nil
	}
}

func parseStructured(payload []byte, now time.Time) (domain.Signal, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.Signal{}, errors.Wrapf(domain.ErrMalformedSignal, "decode payload: %v", err)
	}

	if p.Action == nil {
		return domain.Signal{}, errors.Wrap(domain.ErrMalformedSignal, "missing field action")
	}
	if p.MarketPosition == nil {
		return domain.Signal{}, errors.Wrap(domain.ErrMalformedSignal, "missing field marketPosition")
	}

	action, ok := parseAction(*p.Action)
	if !ok {
		return domain.Signal{}, errors.Wrapf(domain.ErrMalformedSignal, "unknown action %q", *p.Action)
	}
	desired, ok := parseMarketPosition(*p.MarketPosition)
	if !ok {
		return domain.Signal{}, errors.Wrapf(domain.ErrMalformedSignal, "unknown marketPosition %q", *p.MarketPosition)
	}

	previous := domain.MarketPositionUnknown
	if p.PrevMarketPosition != nil {
		if prev, ok := parseMarketPosition(*p.PrevMarketPosition); ok {
			previous = prev
		}
	}

	return domain.Signal{
		Action:     action,
		Desired:    desired,
		Previous:   previous,
		RawSize:    p.PositionSize.Decimal,
		Timeframe:  string(p.Timeframe),
		Price:      p.Price.Decimal,
		ReceivedAt: now,
		Source:     domain.SignalSourceStructured,
	}, nil
}

func parseAction(s string) (domain.SignalAction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return domain.SignalActionBuy, true
	case "sell":
		return domain.SignalActionSell, true
	default:
		return domain.SignalActionNone, false
	}
}

func parseMarketPosition(s string) (domain.MarketPosition, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return domain.MarketPositionLong, true
	case "short":
		return domain.MarketPositionShort, true
	case "flat":
		return domain.MarketPositionFlat, true
	default:
		return domain.MarketPositionUnknown, false
	}
}

var heuristicKeywords = []string{"buy", "long", "sell", "short", "close", "flat"}

// parseHeuristic resolves free-form alert text.
// buy/long mean buy, sell/short/close mean sell, flat/close request a flat position.
// A keyword matches at the start of a word, so "closed" and "selling" count but "along" does not.
// Text naming both directions without asking for flat is ambiguous and yields a non-actionable signal.
func parseHeuristic(text string, now time.Time) domain.Signal {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	seen := make(map[string]bool, len(heuristicKeywords))
	for _, w := range words {
		for _, kw := range heuristicKeywords {
			if strings.HasPrefix(w, kw) {
				seen[kw] = true
			}
		}
	}

	sig := domain.Signal{
		Action:     domain.SignalActionNone,
		Desired:    domain.MarketPositionUnknown,
		Previous:   domain.MarketPositionUnknown,
		RawSize:    decimal.Zero,
		Price:      decimal.Zero,
		ReceivedAt: now,
		Source:     domain.SignalSourceHeuristic,
	}

	buy := seen["buy"] || seen["long"]
	sell := seen["sell"] || seen["short"] || seen["close"]

	if seen["flat"] || seen["close"] {
		sig.Desired = domain.MarketPositionFlat
		sig.Action = domain.SignalActionSell
		if seen["buy"] && !seen["sell"] {
			sig.Action = domain.SignalActionBuy
		}
		return sig
	}

	if buy == sell {
		return sig
	}

	if buy {
		sig.Action = domain.SignalActionBuy
		sig.Desired = domain.MarketPositionLong
		return sig
	}

	sig.Action = domain.SignalActionSell
	sig.Desired = domain.MarketPositionShort
	return sig
}
