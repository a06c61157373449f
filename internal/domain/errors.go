package domain

import "github.com/pkg/errors"

// Engine error taxonomy. Callers classify with errors.Is.
var (
	// ErrMalformedSignal payload could not be parsed into a signal.
	ErrMalformedSignal = errors.New("malformed signal")
	// ErrDuplicateSignal same signal seen within the dedup window.
	ErrDuplicateSignal = errors.New("duplicate signal")
	// ErrMarketDataUnavailable balance, price or positions could not be read.
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	// ErrInsufficientExposure leveraged capital is below the minimum notional.
	ErrInsufficientExposure = errors.New("insufficient exposure")
	// ErrPyramidLimitReached position already holds the maximum number of entries.
	ErrPyramidLimitReached = errors.New("pyramiding limit reached")
	// ErrOrderPlacement trading API rejected or failed an order.
	ErrOrderPlacement = errors.New("order placement failed")
	// ErrCredentialsMissing exchange credentials are not configured.
	ErrCredentialsMissing = errors.New("exchange credentials missing")
)
