package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/taskboard-api/internal/events"
)

// Subscriber is a connection that can receive frames.
type Subscriber interface {
	// SubscriberID uniquely identifies the subscriber within a Hub.
	SubscriberID() string

	// Send enqueues a frame without blocking and reports whether it was
	// accepted. A full or closed queue returns false.
	Send(frame []byte) bool
}

// Hub maps topics to their current subscribers.
type Hub struct {
	mu     sync.RWMutex
	topics map[events.Topic]map[string]Subscriber
	// reverse index so a subscriber can be removed from everything at once
	bySubscriber map[string]map[events.Topic]struct{}
	logger       *slog.Logger
}

var _ Sink = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		panic("logger cannot be nil for Hub")
	}
	return &Hub{
		topics:       make(map[events.Topic]map[string]Subscriber),
		bySubscriber: make(map[string]map[events.Topic]struct{}),
		logger:       logger.With(slog.String("component", "broadcast_hub")),
	}
}

// Subscribe adds sub to topic. Subscribing twice is a no-op.
func (h *Hub) Subscribe(topic events.Topic, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]Subscriber)
		h.topics[topic] = subs
	}
	subs[sub.SubscriberID()] = sub

	owned, ok := h.bySubscriber[sub.SubscriberID()]
	if !ok {
		owned = make(map[events.Topic]struct{})
		h.bySubscriber[sub.SubscriberID()] = owned
	}
	owned[topic] = struct{}{}
}

// Unsubscribe removes the subscriber from topic.
func (h *Hub) Unsubscribe(topic events.Topic, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(topic, subscriberID)
}

// UnsubscribeAll removes the subscriber from every topic and returns the
// topics it was subscribed to.
func (h *Hub) UnsubscribeAll(subscriberID string) []events.Topic {
	h.mu.Lock()
	defer h.mu.Unlock()

	owned := h.bySubscriber[subscriberID]
	out := make([]events.Topic, 0, len(owned))
	for topic := range owned {
		out = append(out, topic)
		h.removeLocked(topic, subscriberID)
	}
	return out
}

func (h *Hub) removeLocked(topic events.Topic, subscriberID string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if owned, ok := h.bySubscriber[subscriberID]; ok {
		delete(owned, topic)
		if len(owned) == 0 {
			delete(h.bySubscriber, subscriberID)
		}
	}
}

// SubscriberCount returns the number of subscribers on topic.
func (h *Hub) SubscriberCount(topic events.Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Subscribed reports whether the subscriber currently receives topic.
func (h *Hub) Subscribed(topic events.Topic, subscriberID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.topics[topic][subscriberID]
	return ok
}

// Deliver encodes msg once and offers it to every current subscriber of its
// topic. Subscribers whose queues are full are skipped and the drop is
// reported as ErrBroadcastFailure.
func (h *Hub) Deliver(ctx context.Context, msg Message) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode frame: %v", ErrBroadcastFailure, err)
	}

	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.topics[msg.Topic]))
	for _, sub := range h.topics[msg.Topic] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, sub := range subs {
		if !sub.Send(frame) {
			dropped++
			h.logger.WarnContext(ctx, "dropped frame for slow subscriber",
				slog.String("topic", string(msg.Topic)),
				slog.String("subscriber_id", sub.SubscriberID()))
		}
	}

	if dropped > 0 {
		return fmt.Errorf("%w: %s: %d of %d subscribers dropped",
			ErrBroadcastFailure, msg.Topic, dropped, len(subs))
	}
	return nil
}
