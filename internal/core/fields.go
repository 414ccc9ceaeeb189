package core

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Fields maps field names to setters that parse a string into the field.
// Configs build one per Set call over their own pointer receivers.
type Fields map[string]func(value string) error

// Set looks up name and applies value. Failures are returned as *FieldError.
func (f Fields) Set(indicator, name, value string) error {
	setter, ok := f[name]
	if !ok {
		return &FieldError{Indicator: indicator, Field: name, Value: value, Err: ErrUnknownField}
	}
	if err := setter(value); err != nil {
		return &FieldError{Indicator: indicator, Field: name, Value: value, Err: err}
	}
	return nil
}

// Names returns the known field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParsePeriod parses a positive window length.
func ParsePeriod(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, ErrInvalidLength
	}
	return n, nil
}

var errNotFinite = errors.New("not a finite number")

// ParsePrice parses a decimal price. NaN and infinities are rejected.
func ParsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errNotFinite
	}
	return v, nil
}
