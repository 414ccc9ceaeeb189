package indicator

import (
	"fmt"
	"log"
	"strings"

	"signal-enginev1/internal/core"
)

// ReloadConfigs swaps the engine's configs at runtime.
//
// Instances whose label and parameters are unchanged keep their state.
// Indicators that are new for a token are seeded with that token's most
// recent candle; a new TF starts cold. Returns how many token states were
// carried over and how many instances were created.
func (e *Engine) ReloadConfigs(newConfigs []TFIndicatorConfig) (preserved, created int, err error) {
	if err := ValidateConfigs(newConfigs); err != nil {
		return 0, 0, err
	}

	oldStateByTF := make(map[int]map[string]*tokenIndicators, len(e.configs))
	for i, cfg := range e.configs {
		oldStateByTF[cfg.TF] = e.state[i]
	}

	newState := make([]map[string]*tokenIndicators, len(newConfigs))
	for i, newCfg := range newConfigs {
		oldTFState, tfExists := oldStateByTF[newCfg.TF]
		if !tfExists {
			newState[i] = make(map[string]*tokenIndicators, 64)
			log.Printf("[reload] TF=%d: new timeframe, cold-starting", newCfg.TF)
			continue
		}

		migrated := make(map[string]*tokenIndicators, len(oldTFState))
		for tokenKey, oldTI := range oldTFState {
			newTI, n, err := migrateTokenIndicators(oldTI, newCfg.Indicators)
			if err != nil {
				return 0, 0, fmt.Errorf("reload %s tf=%d: %w", tokenKey, newCfg.TF, err)
			}
			migrated[tokenKey] = newTI
			preserved++
			created += n
		}
		newState[i] = migrated
		log.Printf("[reload] TF=%d: migrated %d token states", newCfg.TF, len(migrated))
	}

	e.setConfigs(newConfigs, newState)

	log.Printf("[reload] config reloaded: %d TFs, %d preserved, %d new instances",
		len(newConfigs), preserved, created)
	return preserved, created, nil
}

// migrateTokenIndicators builds the instance set for newConfigs, reusing old
// instances with matching keys. It returns the number of fresh instances.
func migrateTokenIndicators(oldTI *tokenIndicators, newConfigs []Configured) (*tokenIndicators, int, error) {
	oldByKey := make(map[string]int, len(oldTI.configs))
	for i, c := range oldTI.configs {
		oldByKey[c.key()] = i
	}

	created := 0
	insts := make([]core.IndicatorInstance, len(newConfigs))
	for i, c := range newConfigs {
		if j, ok := oldByKey[c.key()]; ok {
			insts[i] = oldTI.instances[j]
			continue
		}
		inst, err := c.Config.Init(oldTI.last)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", c.Label, err)
		}
		insts[i] = inst
		created++
	}

	return &tokenIndicators{
		instances: insts,
		configs:   newConfigs,
		last:      oldTI.last,
	}, created, nil
}

// ValidateConfigs checks a set of TFIndicatorConfigs for errors.
func ValidateConfigs(configs []TFIndicatorConfig) error {
	seen := make(map[int]bool)
	for _, cfg := range configs {
		if cfg.TF <= 0 {
			return fmt.Errorf("invalid TF=%d: must be positive", cfg.TF)
		}
		if seen[cfg.TF] {
			return fmt.Errorf("duplicate TF=%d", cfg.TF)
		}
		seen[cfg.TF] = true

		labels := make(map[string]bool, len(cfg.Indicators))
		for _, ind := range cfg.Indicators {
			if ind.Config == nil {
				return fmt.Errorf("indicator %q on TF=%d has no config", ind.Label, cfg.TF)
			}
			if ind.Label == "" {
				return fmt.Errorf("%s on TF=%d: empty label", ind.Config.Name(), cfg.TF)
			}
			if strings.ContainsAny(ind.Label, ": ") {
				return fmt.Errorf("label %q on TF=%d: must not contain ':' or spaces", ind.Label, cfg.TF)
			}
			if labels[ind.Label] {
				return fmt.Errorf("duplicate label %q on TF=%d", ind.Label, cfg.TF)
			}
			labels[ind.Label] = true
			if err := ind.Config.Validate(); err != nil {
				return fmt.Errorf("%s on TF=%d: %w", ind.Label, cfg.TF, err)
			}
		}
	}
	return nil
}
