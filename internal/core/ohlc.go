package core

// OHLC is the capability every candle type fed to an indicator must have.
// Callers can pass their own record types as long as they expose these accessors.
type OHLC interface {
	GetOpen() float64
	GetHigh() float64
	GetLow() float64
	GetClose() float64
}

// Candle is a plain float64 OHLC bar.
type Candle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

func (c Candle) GetOpen() float64  { return c.Open }
func (c Candle) GetHigh() float64  { return c.High }
func (c Candle) GetLow() float64   { return c.Low }
func (c Candle) GetClose() float64 { return c.Close }

// CandleOf copies the four prices of c into a Candle, so the result holds no
// reference to the caller's value.
func CandleOf(c OHLC) Candle {
	return Candle{Open: c.GetOpen(), High: c.GetHigh(), Low: c.GetLow(), Close: c.GetClose()}
}
