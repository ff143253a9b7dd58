package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRelay forwards messages through a redis pub/sub channel so that every
// API instance delivers every event to its own connections. It is a Sink for
// the Dispatcher on the publishing side; Run feeds the local Sink on the
// receiving side.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   Sink
	logger  *slog.Logger

	reconnectDelay time.Duration
	ready          chan struct{}
	readyOnce      sync.Once
}

var _ Sink = (*RedisRelay)(nil)

// NewRedisRelay creates a relay on channel delivering received messages to local.
func NewRedisRelay(client *redis.Client, channel string, local Sink, logger *slog.Logger) *RedisRelay {
	if client == nil || local == nil || logger == nil {
		panic("redis relay requires a client, a local sink and a logger")
	}
	return &RedisRelay{
		client:         client,
		channel:        channel,
		local:          local,
		logger:         logger.With(slog.String("component", "redis_relay"), slog.String("channel", channel)),
		reconnectDelay: time.Second,
		ready:          make(chan struct{}),
	}
}

// Deliver publishes msg on the relay channel.
func (r *RedisRelay) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode relay payload: %v", ErrBroadcastFailure, err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %v", ErrBroadcastFailure, err)
	}
	return nil
}

// Ready is closed once the first subscription to the channel is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes to the relay channel and hands every message to the local
// Sink until ctx is cancelled, resubscribing when the connection drops.
func (r *RedisRelay) Run(ctx context.Context) error {
	for {
		if err := r.consume(ctx); err != nil {
			r.logger.Error("relay subscription failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		r.logger.Warn("relay subscription closed, reconnecting", "delay", r.reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.reconnectDelay):
		}
	}
}

func (r *RedisRelay) consume(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	r.readyOnce.Do(func() { close(r.ready) })
	r.logger.Info("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.Error("unable to decode relayed message", "error", err)
				continue
			}
			if err := r.local.Deliver(ctx, msg); err != nil {
				r.logger.Warn("relayed event delivery failed",
					slog.String("topic", string(msg.Topic)),
					slog.String("error", err.Error()))
			}
		}
	}
}
