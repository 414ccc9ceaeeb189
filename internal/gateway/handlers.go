package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// RouteConfig describes what the REST endpoints report.
type RouteConfig struct {
	Rdb        *goredis.Client // optional; enables /api/signals/history
	TFs        []int
	Indicators []string // instance labels
	StartTime  time.Time
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, cfg RouteConfig) {
	// WebSocket endpoint; filters may be given up front as query params
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		filters, err := filtersFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleConn(conn, filters)
	})

	mux.HandleFunc("/api/signals/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.GetLatestAll())
	})

	// REST: envelopes a client missed, for gap recovery via channel_seq
	mux.HandleFunc("/api/signals/missed", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		channel := q.Get("channel")
		from, errFrom := strconv.ParseInt(q.Get("from"), 10, 64)
		to, errTo := strconv.ParseInt(q.Get("to"), 10, 64)
		if channel == "" || errFrom != nil || errTo != nil || from > to {
			http.Error(w, `{"error":"channel, from and to are required"}`, http.StatusBadRequest)
			return
		}
		entries := hub.GetReplayRange(channel, from, to)
		out := make([]json.RawMessage, len(entries))
		for i, e := range entries {
			out[i] = e
		}
		writeJSON(w, map[string]interface{}{
			"channel":     channel,
			"channel_seq": hub.GetChannelSeq(channel),
			"messages":    out,
		})
	})

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"tfs":        cfg.TFs,
			"indicators": cfg.Indicators,
		})
	})

	// REST: signal history from the Redis streams
	mux.HandleFunc("/api/signals/history", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Rdb == nil {
			http.Error(w, `{"error":"history requires redis"}`, http.StatusServiceUnavailable)
			return
		}
		q := r.URL.Query()
		name := q.Get("indicator")
		tf, _ := strconv.Atoi(q.Get("tf"))
		token := q.Get("token") // "exchange:token"
		if name == "" || tf <= 0 || !strings.Contains(token, ":") {
			http.Error(w, `{"error":"indicator, tf and token are required"}`, http.StatusBadRequest)
			return
		}
		limit := 300
		if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 1000 {
			limit = l
		}

		streamKey := fmt.Sprintf("sig:%s:%ds:%s", name, tf, token)
		msgs, err := cfg.Rdb.XRevRangeN(r.Context(), streamKey, "+", "-", int64(limit)).Result()
		if err != nil {
			writeJSON(w, []interface{}{})
			return
		}

		// Reverse to chronological order
		points := make([]json.RawMessage, 0, len(msgs))
		for i := len(msgs) - 1; i >= 0; i-- {
			if data, ok := msgs[i].Values["data"].(string); ok {
				points = append(points, json.RawMessage(data))
			}
		}
		writeJSON(w, points)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":     "ok",
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(cfg.StartTime).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		}
		if cfg.Rdb != nil {
			status["redis"] = cfg.Rdb.Ping(r.Context()).Err() == nil
		}
		writeJSON(w, status)
	})
}

// filtersFromQuery reads ?tfs=60,300&tokens=NSE:1&indicators=example.
func filtersFromQuery(r *http.Request) (ClientFilters, error) {
	var f ClientFilters
	q := r.URL.Query()
	for _, s := range splitList(q.Get("tfs")) {
		tf, err := strconv.Atoi(s)
		if err != nil || tf <= 0 {
			return f, fmt.Errorf("invalid tf %q", s)
		}
		f.TFs = append(f.TFs, tf)
	}
	f.Tokens = splitList(q.Get("tokens"))
	f.Indicators = splitList(q.Get("indicators"))
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
