package broadcast

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/phrazzld/taskboard-api/internal/events"
)

var (
	// ErrBroadcastFailure marks an event that could not be delivered to
	// every destination. It is logged and never surfaced to the writer
	// whose change produced the event.
	ErrBroadcastFailure = errors.New("broadcast failure")

	// ErrDispatcherStopped is reported when publishing after Stop.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// Message is the envelope sent to subscribers: the topic it was published on
// and the JSON-encoded event.
type Message struct {
	Topic events.Topic    `json:"topic"`
	Event json.RawMessage `json:"event"`
}

// NewMessage encodes event into an envelope for topic.
func NewMessage(topic events.Topic, event any) (Message, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Event: raw}, nil
}

// Publisher accepts events for asynchronous delivery. Publish never blocks
// on subscribers and never reports delivery failures to the caller.
type Publisher interface {
	Publish(ctx context.Context, topic events.Topic, event any)
}

// Sink receives messages from a Dispatcher shard, one at a time per topic.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(ctx context.Context, topic events.Topic, event any)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, topic events.Topic, event any) {
	f(ctx, topic, event)
}
