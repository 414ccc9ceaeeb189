package sigengine

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"signal-enginev1/config"
	"signal-enginev1/internal/indicator"
)

// ConfigChannel carries indicator spec strings for live reloads.
const ConfigChannel = "config:indicators"

// handleReload handles POST /reload. The body is an indicator spec list,
// e.g. "example:price=2.5,pivot_reversal@pr:left=3", applied to every TF.
func (svc *Service) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	preserved, created, err := svc.reloadFromSpecs(strings.TrimSpace(string(body)))
	if err != nil {
		svc.prom.ConfigErrors.Inc()
		http.Error(w, "reload: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"preserved": preserved,
		"created":   created,
	})
}

// startConfigSubscriber listens on ConfigChannel for indicator spec updates.
func (svc *Service) startConfigSubscriber(ctx context.Context) {
	pubsub := svc.redisClient().Subscribe(ctx, ConfigChannel)
	go func() {
		defer pubsub.Close()
		log.Printf("[sigengine] subscribed to %s for dynamic reload", ConfigChannel)

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				log.Printf("[sigengine] received config update: %s", msg.Payload)
				if _, _, err := svc.reloadFromSpecs(msg.Payload); err != nil {
					svc.prom.ConfigErrors.Inc()
					log.Printf("[sigengine] invalid config update: %v", err)
				}
			}
		}
	}()
}

// reloadFromSpecs rebuilds the per-TF configs from a spec list and swaps
// them into the engine. The engine is untouched when any spec is invalid.
func (svc *Service) reloadFromSpecs(specList string) (preserved, created int, err error) {
	specs, err := indicator.ParseSpecs(specList)
	if err != nil {
		return 0, 0, err
	}
	tfSpecs := make([]config.TFSpecs, 0)
	for _, tf := range tfsOf(svc.currentConfigs()) {
		tfSpecs = append(tfSpecs, config.TFSpecs{TF: tf, Indicators: specs})
	}
	newConfigs, err := config.BuildConfigs(svc.reg, tfSpecs)
	if err != nil {
		return 0, 0, err
	}

	svc.mu.Lock()
	preserved, created, err = svc.engine.ReloadConfigs(newConfigs)
	svc.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}
	svc.health.SetIndicators(labels(newConfigs))
	log.Printf("[sigengine] reloaded: preserved=%d, created=%d", preserved, created)
	return preserved, created, nil
}
