// Package gateway fans signal results out to WebSocket clients.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signal-enginev1/internal/model"
)

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64 // per-channel seq for gap detection
}

// Hub manages WebSocket clients and the latest value of every channel.
// It implements model.SignalWriter, so the engine can publish to it directly.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers and replay buffers
	channelSeqs map[string]int64
	replayBufs  map[string]*ReplayBuffer
	replaySize  int

	Broadcaster *Broadcaster

	OnClientCount func(n int) // called when a client connects or leaves
	OnDrop        func()      // called when a slow client misses a message

	now func() time.Time
}

// NewHub creates a Hub keeping replaySize envelopes per channel.
func NewHub(replaySize int) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
		replaySize:  replaySize,
		now:         time.Now,
	}
	h.Broadcaster = NewBroadcaster(h)
	return h
}

// WriteSignalBatch broadcasts every result on its live channel.
func (h *Hub) WriteSignalBatch(_ context.Context, results []model.SignalResult) error {
	for i := range results {
		h.Broadcaster.Broadcast(results[i].PubSubChannel(), results[i].JSON())
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.RemoveClient(c)
	}
	return nil
}

// register adds a client and sends it the latest value of every matching channel.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// HandleConn registers an upgraded connection and starts its pumps.
func (h *Hub) HandleConn(conn *websocket.Conn, filters ClientFilters) {
	c := newClient(h, conn, filters)
	h.register(c)
	c.sendInitialState()
	go c.writePump()
	go c.readPump()
}

// RemoveClient removes a client from the hub and closes its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	if h.OnClientCount != nil {
		h.OnClientCount(count)
	}
}

// GetLatestAll returns a snapshot of the latest payload of every channel.
func (h *Hub) GetLatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// GetReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
func (h *Hub) GetReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// GetChannelSeq returns the current sequence number for a channel.
func (h *Hub) GetChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// route is a parsed signal channel "pub:sig:{indicator}:{tf}s:{exchange}:{token}".
type route struct {
	indicator string
	tf        int
	key       string // "exchange:token"
}

// parseChannel returns nil for channels that are not signal channels.
func parseChannel(channel string) *route {
	parts := strings.SplitN(channel, ":", 6)
	if len(parts) != 6 || parts[0] != "pub" || parts[1] != "sig" {
		return nil
	}
	tf, err := strconv.Atoi(strings.TrimSuffix(parts[3], "s"))
	if err != nil || !strings.HasSuffix(parts[3], "s") {
		return nil
	}
	return &route{indicator: parts[2], tf: tf, key: parts[4] + ":" + parts[5]}
}
