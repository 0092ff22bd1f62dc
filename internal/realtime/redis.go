package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// laravelMessage is what Laravel's Redis broadcaster publishes.
type laravelMessage struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Socket *string         `json:"socket"`
}

// RedisBroadcaster reads Laravel broadcasts straight off Redis pub/sub.
// Channel names carry the Laravel database prefix.
type RedisBroadcaster struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

func NewRedisBroadcaster(rdb *redis.Client, prefix string, subscribeTimeout time.Duration, log *zap.Logger) *RedisBroadcaster {
	if subscribeTimeout <= 0 {
		subscribeTimeout = defaultSubscribeTimeout
	}
	return &RedisBroadcaster{rdb: rdb, prefix: prefix, timeout: subscribeTimeout, log: log}
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	name := b.prefix + channel
	ps := b.rdb.Subscribe(ctx, name)

	rctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if _, err := ps.Receive(rctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}

	sub := newSubscription(channel, ps.Close)
	go b.pump(ps, sub)

	b.log.Info("subscribed to redis channel", zap.String("channel", name))
	return sub, nil
}

func (b *RedisBroadcaster) pump(ps *redis.PubSub, sub *subscription) {
	for msg := range ps.Channel() {
		var m laravelMessage
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			b.log.Warn("undecodable broadcast message",
				zap.String("channel", msg.Channel),
				zap.Error(err),
			)
			continue
		}
		sub.dispatch(m.Event, unwrapData(m.Data))
	}
	sub.end()
}

// Publish writes an event in the same shape Laravel would.
func (b *RedisBroadcaster) Publish(ctx context.Context, channel, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal broadcast data: %w", err)
	}
	msg, err := json.Marshal(laravelMessage{Event: event, Data: raw})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.prefix+channel, msg).Err()
}

// Close is a no-op: the redis client belongs to the caller.
func (b *RedisBroadcaster) Close() error { return nil }
