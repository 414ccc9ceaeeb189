package core

// IndicatorConfig is a validated, named-field parameter record.
//
// A config must pass Validate before it is used; Init enforces this itself
// and returns ErrInvalidConfig for unusable parameters.
type IndicatorConfig interface {
	// Name returns the indicator name, e.g. "Example".
	Name() string

	// Validate returns nil when the parameters are usable.
	Validate() error

	// Set parses value into the field called name. Unknown names and
	// unparsable values return a *FieldError and leave the config unchanged.
	Set(name, value string) error

	// Size declares the (raw values, signals) shape of every Step result.
	Size() (raw, signals uint8)

	// Init validates the config and creates a running instance seeded with seed.
	Init(seed OHLC) (IndicatorInstance, error)
}

// IndicatorInstance is the running state of one indicator over one candle stream.
//
// An instance is created once from a config and a seed candle and then
// stepped with every candle in strict time order. It is not safe for
// concurrent use; independent instances share nothing and may run in parallel.
type IndicatorInstance interface {
	Name() string

	// Config returns a copy of the config the instance was built from.
	Config() IndicatorConfig

	// Step consumes the next candle and returns a result shaped as Config().Size().
	Step(candle OHLC) IndicatorResult
}
