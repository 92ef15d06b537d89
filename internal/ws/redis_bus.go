package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// BusMessage is a color relay crossing instances
type BusMessage struct {
	Room    string          `json:"room"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bus carries color relays between relay instances
type Bus interface {
	Publish(ctx context.Context, m BusMessage) error
	Subscribe(ctx context.Context, fn func(BusMessage))
}

type RedisBus struct {
	rdb redis.UniversalClient
	log *slog.Logger
}

// NewRedisBus verifies connectivity on a client owned by the caller
func NewRedisBus(ctx context.Context, rdb redis.UniversalClient, log *slog.Logger) (*RedisBus, error) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis bus ping: %w", err)
	}
	return &RedisBus{rdb: rdb, log: log}, nil
}

// Publish sends a message to the redis channel for a room
func (b *RedisBus) Publish(ctx context.Context, m BusMessage) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel(m.Room), raw).Err()
}

// Subscribe listens to all room channels and invokes fn for each message
func (b *RedisBus) Subscribe(ctx context.Context, fn func(BusMessage)) {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		b.log.Error("bus.subscribe", "err", err)
		return
	}
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var bm BusMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				b.log.Debug("bus.decode", "channel", msg.Channel, "err", err)
				continue
			}
			if bm.Room != "" {
				fn(bm)
			}
		}
	}
}

// channel namespacing for room pub/sub
func channel(room string) string { return "color:" + room }
