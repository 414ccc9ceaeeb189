package gateway

import (
	"sync"

	"signal-enginev1/internal/core"
)

// replayEntry holds a single broadcast envelope for replay.
type replayEntry struct {
	Seq  int64 // channel seq, starting at 1; 0 marks an unused slot
	Data []byte
}

// ReplayBuffer keeps the most recent envelopes of one channel so clients
// can backfill gaps they detect through channel_seq.
//
// Safe for concurrent use.
type ReplayBuffer struct {
	mu     sync.RWMutex
	window *core.Window[replayEntry]
	count  int
}

// NewReplayBuffer creates a replay buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	w, _ := core.NewWindow(capacity, replayEntry{})
	return &ReplayBuffer{window: w}
}

// Push appends a copy of data, evicting the oldest entry when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	rb.mu.Lock()
	rb.window.Push(replayEntry{Seq: seq, Data: cp})
	if rb.count < rb.window.Len() {
		rb.count++
	}
	rb.mu.Unlock()
}

// Range returns the entries with seq in [fromSeq, toSeq], oldest first.
func (rb *ReplayBuffer) Range(fromSeq, toSeq int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []replayEntry
	rb.window.Each(func(e replayEntry) {
		if e.Seq > 0 && e.Seq >= fromSeq && e.Seq <= toSeq {
			result = append(result, e)
		}
	})
	return result
}

// Len returns the number of entries currently held.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
