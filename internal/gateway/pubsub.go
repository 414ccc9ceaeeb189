package gateway

import (
	"context"
	"log"

	goredis "github.com/go-redis/redis/v8"
)

// Relay broadcasts every message received on msgs until ctx is cancelled
// or the channel is closed. The standalone gateway feeds it from a Redis
// PubSub subscription instead of an in-process engine.
func (h *Hub) Relay(ctx context.Context, msgs <-chan *goredis.Message) {
	n := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("[gateway] relay stopped after %d messages", n)
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			h.Broadcaster.Broadcast(msg.Channel, []byte(msg.Payload))
			n++
		}
	}
}
