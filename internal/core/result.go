package core

import "fmt"

// IndicatorResult holds one step's raw values and discrete signals.
type IndicatorResult struct {
	values  []float64
	signals []Action
}

// NewIndicatorResult copies values and signals into a new result.
func NewIndicatorResult(values []float64, signals []Action) IndicatorResult {
	r := IndicatorResult{
		values:  make([]float64, len(values)),
		signals: make([]Action, len(signals)),
	}
	copy(r.values, values)
	copy(r.signals, signals)
	return r
}

// Values returns the raw numeric outputs.
func (r IndicatorResult) Values() []float64 { return r.values }

// Signals returns the discrete actions.
func (r IndicatorResult) Signals() []Action { return r.signals }

// Value returns raw value i.
func (r IndicatorResult) Value(i int) float64 { return r.values[i] }

// Signal returns signal i.
func (r IndicatorResult) Signal(i int) Action { return r.signals[i] }

// Size returns (len(values), len(signals)).
func (r IndicatorResult) Size() (raw, signals int) { return len(r.values), len(r.signals) }

// CheckShape verifies that r matches the shape cfg declares.
func CheckShape(cfg IndicatorConfig, r IndicatorResult) error {
	wantRaw, wantSig := cfg.Size()
	gotRaw, gotSig := r.Size()
	if gotRaw != int(wantRaw) || gotSig != int(wantSig) {
		return fmt.Errorf("%s: got (%d, %d), declared (%d, %d): %w",
			cfg.Name(), gotRaw, gotSig, wantRaw, wantSig, ErrShapeMismatch)
	}
	return nil
}
