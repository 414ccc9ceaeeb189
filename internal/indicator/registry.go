package indicator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"signal-enginev1/internal/core"
)

// Spec names an indicator and the field values to set on its default config.
type Spec struct {
	Name   string            `yaml:"name" json:"name"`
	Label  string            `yaml:"label,omitempty" json:"label,omitempty"`
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// String renders the spec in the form ParseSpecs accepts.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Label != "" {
		b.WriteString("@" + s.Label)
	}
	keys := sortedKeys(s.Params)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte(';')
		}
		b.WriteString(k + "=" + s.Params[k])
	}
	return b.String()
}

// ParseSpecs parses a comma-separated list of indicator specs:
//
//	name[@label][:field=value[;field=value...]]
//
// e.g. "example:price=2.5;period=4,pivot_reversal@pr:left=3".
func ParseSpecs(s string) ([]Spec, error) {
	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		head, params, _ := strings.Cut(part, ":")
		name, label, _ := strings.Cut(head, "@")
		spec := Spec{
			Name:  strings.TrimSpace(name),
			Label: strings.TrimSpace(label),
		}
		if spec.Name == "" {
			return nil, fmt.Errorf("spec %q: empty indicator name", part)
		}
		for _, kv := range strings.Split(params, ";") {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("spec %q: param %q is not field=value", part, kv)
			}
			if spec.Params == nil {
				spec.Params = make(map[string]string)
			}
			spec.Params[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Registry maps indicator names to constructors of their default config.
type Registry struct {
	ctors map[string]func() core.IndicatorConfig
}

// NewRegistry returns a registry holding the built-in indicators.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]func() core.IndicatorConfig)}
	r.Register("example", func() core.IndicatorConfig { return NewExample() })
	r.Register("pivot_reversal", func() core.IndicatorConfig { return NewPivotReversalStrategy() })
	return r
}

// Register adds or replaces an indicator constructor.
func (r *Registry) Register(name string, ctor func() core.IndicatorConfig) {
	r.ctors[strings.ToLower(name)] = ctor
}

// Names returns the registered indicator names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns a fresh default config for name.
func (r *Registry) Default(name string) (core.IndicatorConfig, error) {
	ctor, ok := r.ctors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownIndicator)
	}
	return ctor(), nil
}

// Build creates the config described by spec. Params are applied in sorted
// field order; every failed Set is reported, then the result is validated.
func (r *Registry) Build(spec Spec) (Configured, error) {
	cfg, err := r.Default(spec.Name)
	if err != nil {
		return Configured{}, err
	}

	var errs []error
	for _, k := range sortedKeys(spec.Params) {
		if err := cfg.Set(k, spec.Params[k]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Configured{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Configured{}, err
	}

	label := spec.Label
	if label == "" {
		label = strings.ToLower(spec.Name)
	}
	return Configured{Label: label, Config: cfg}, nil
}

// BuildAll builds every spec, stopping at the first failure.
func (r *Registry) BuildAll(specs []Spec) ([]Configured, error) {
	out := make([]Configured, 0, len(specs))
	for _, s := range specs {
		c, err := r.Build(s)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", s, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
