// Package model holds the wire and storage types shared across the engine.
package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is an OHLC bar for a single instrument and timeframe.
// Prices are stored in paise (int64) to avoid floating-point drift and are
// converted to rupees by the GetOpen/GetHigh/GetLow/GetClose accessors.
type Candle struct {
	Token    string    `json:"token"`
	Exchange string    `json:"exchange"`
	TF       int       `json:"tf"`     // timeframe in seconds
	TS       time.Time `json:"ts"`     // bucket start time (UTC)
	Open     int64     `json:"open"`   // paise
	High     int64     `json:"high"`   // paise
	Low      int64     `json:"low"`    // paise
	Close    int64     `json:"close"`  // paise
	Volume   int64     `json:"volume"` // cumulative quantity
}

// Key returns a unique key for this candle's instrument: "exchange:token".
func (c Candle) Key() string {
	return c.Exchange + ":" + c.Token
}

// StreamKey returns the Redis stream key live candles arrive on:
// "candle:{TF}s:{exchange}:{token}".
func (c Candle) StreamKey() string {
	return "candle:" + strconv.Itoa(c.TF) + "s:" + c.Exchange + ":" + c.Token
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

func (c Candle) GetOpen() float64  { return rupees(c.Open) }
func (c Candle) GetHigh() float64  { return rupees(c.High) }
func (c Candle) GetLow() float64   { return rupees(c.Low) }
func (c Candle) GetClose() float64 { return rupees(c.Close) }

func rupees(paise int64) float64 {
	return float64(paise) / 100
}

// Paise converts a rupee price to paise, rounding to the nearest paisa.
func Paise(rupees float64) int64 {
	return decimal.NewFromFloat(rupees).Shift(2).Round(0).IntPart()
}
