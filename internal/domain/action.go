package domain

// Action represents the type of trading action to be performed.
type Action int

const (
	ActionOpenLong Action = iota
	ActionCloseLong
	ActionOpenShort
	ActionCloseShort
)

// action string constants to avoid magic strings
const (
	actionStringOpenLong   = "open_long"
	actionStringCloseLong  = "close_long"
	actionStringOpenShort  = "open_short"
	actionStringCloseShort = "close_short"
)

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionOpenLong:
		return actionStringOpenLong
	case ActionCloseLong:
		return actionStringCloseLong
	case ActionOpenShort:
		return actionStringOpenShort
	case ActionCloseShort:
		return actionStringCloseShort
	default:
		return "unknown"
	}
}

// OrderSide returns the market side that executes the action.
// Opening a long and closing a short are buys, the rest are sells.
func (a Action) OrderSide() OrderSide {
	switch a {
	case ActionOpenLong, ActionCloseShort:
		return OrderSideBuy
	default:
		return OrderSideSell
	}
}

// ReduceOnly reports whether the action may only decrease an existing position.
func (a Action) ReduceOnly() bool {
	return a == ActionCloseLong || a == ActionCloseShort
}

// PositionSide returns the position side the action operates on.
func (a Action) PositionSide() PositionSide {
	if a == ActionOpenShort || a == ActionCloseShort {
		return PositionSideShort
	}
	return PositionSideLong
}

// OpenAction returns the action opening a position on the given side.
func OpenAction(side PositionSide) Action {
	if side == PositionSideShort {
		return ActionOpenShort
	}
	return ActionOpenLong
}

// CloseAction returns the action closing a position on the given side.
func CloseAction(side PositionSide) Action {
	if side == PositionSideShort {
		return ActionCloseShort
	}
	return ActionCloseLong
}

// MarshalText renders the action by name in JSON responses and logs.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
