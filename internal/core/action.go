package core

import (
	"encoding/json"
	"math"
	"strconv"
)

// MaxStrength is the strength of a full-magnitude signal.
const MaxStrength = math.MaxUint8

// Action is a ternary signal with magnitude: none, buy(strength) or sell(strength).
// The zero value is None.
type Action struct {
	dir      int8
	strength uint8
}

// None is the empty signal.
var None = Action{}

// Buy returns a buy-like action. Strength 0 collapses to None.
func Buy(strength uint8) Action {
	if strength == 0 {
		return None
	}
	return Action{dir: 1, strength: strength}
}

// Sell returns a sell-like action. Strength 0 collapses to None.
func Sell(strength uint8) Action {
	if strength == 0 {
		return None
	}
	return Action{dir: -1, strength: strength}
}

// BuyAll and SellAll are full-strength signals.
var (
	BuyAll  = Buy(MaxStrength)
	SellAll = Sell(MaxStrength)
)

// ActionFromValue thresholds a continuous value into an Action.
//
// The value is clamped to [-1, 1] and its magnitude scaled linearly onto
// 0..MaxStrength with rounding. Positive values map to Buy, negative to Sell.
// Zero, NaN, and values whose scaled strength rounds to 0 map to None.
func ActionFromValue(v float64) Action {
	if math.IsNaN(v) {
		return None
	}
	v = math.Max(-1, math.Min(1, v))
	s := uint8(math.Round(math.Abs(v) * MaxStrength))
	switch {
	case v > 0:
		return Buy(s)
	case v < 0:
		return Sell(s)
	}
	return None
}

// ActionFromSign maps the sign of n onto a full-strength action.
func ActionFromSign(n int) Action {
	switch {
	case n > 0:
		return BuyAll
	case n < 0:
		return SellAll
	}
	return None
}

// IsNone reports whether a is the empty signal.
func (a Action) IsNone() bool { return a.dir == 0 }

// IsBuy reports whether a is buy-like.
func (a Action) IsBuy() bool { return a.dir > 0 }

// IsSell reports whether a is sell-like.
func (a Action) IsSell() bool { return a.dir < 0 }

// Strength returns the unsigned magnitude.
func (a Action) Strength() uint8 { return a.strength }

// Analog returns the signed strength: positive for buy, negative for sell, 0 for none.
func (a Action) Analog() int { return int(a.dir) * int(a.strength) }

// Ratio returns Analog scaled to [-1, 1].
func (a Action) Ratio() float64 { return float64(a.Analog()) / MaxStrength }

func (a Action) String() string {
	switch {
	case a.dir > 0:
		return "BUY(" + strconv.Itoa(int(a.strength)) + ")"
	case a.dir < 0:
		return "SELL(" + strconv.Itoa(int(a.strength)) + ")"
	}
	return "NONE"
}

// MarshalJSON encodes the action as its signed analog value.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Analog())
}

// UnmarshalJSON decodes a signed analog value in [-255, 255].
func (a *Action) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	switch {
	case n > 0:
		*a = Buy(uint8(min(n, MaxStrength)))
	case n < 0:
		*a = Sell(uint8(min(-n, MaxStrength)))
	default:
		*a = None
	}
	return nil
}
