package core

import (
	"fmt"
	"strings"
)

// Source selects which value of a candle feeds a transform.
type Source uint8

const (
	SourceClose Source = iota
	SourceOpen
	SourceHigh
	SourceLow
	SourceHL2
	SourceHLC3
	SourceOHLC4
)

var sourceNames = [...]string{"close", "open", "high", "low", "hl2", "hlc3", "ohlc4"}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// ParseSource parses a source name, case-insensitively.
func ParseSource(s string) (Source, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range sourceNames {
		if n == name {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", s)
}

// Value extracts the selected value from c.
func (s Source) Value(c OHLC) float64 {
	switch s {
	case SourceOpen:
		return c.GetOpen()
	case SourceHigh:
		return c.GetHigh()
	case SourceLow:
		return c.GetLow()
	case SourceHL2:
		return (c.GetHigh() + c.GetLow()) / 2
	case SourceHLC3:
		return (c.GetHigh() + c.GetLow() + c.GetClose()) / 3
	case SourceOHLC4:
		return (c.GetOpen() + c.GetHigh() + c.GetLow() + c.GetClose()) / 4
	}
	return c.GetClose()
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
