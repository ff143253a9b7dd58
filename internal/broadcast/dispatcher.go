package broadcast

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/phrazzld/taskboard-api/internal/events"
)

// DispatcherConfig holds configuration options for the dispatcher.
type DispatcherConfig struct {
	// Workers is the number of shards. If zero or negative, defaults to 1.
	Workers int
	// QueueSize bounds each shard's backlog. If zero or negative, defaults to 1.
	QueueSize int
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Workers: 4, QueueSize: 1024}
}

// Dispatcher is an asynchronous Publisher. Messages for the same topic are
// always handled by the same shard goroutine, which keeps them in order.
type Dispatcher struct {
	sink   Sink
	shards []chan Message

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	logger *slog.Logger
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher that delivers into sink. Call Start to
// begin delivery; messages published earlier wait in the shard queues.
func NewDispatcher(sink Sink, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if sink == nil {
		panic("sink cannot be nil for Dispatcher")
	}
	if logger == nil {
		panic("logger cannot be nil for Dispatcher")
	}
	logger = logger.With(slog.String("component", "broadcast_dispatcher"))

	workers := cfg.Workers
	if workers <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.Workers,
			"default_count", 1)
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	shards := make([]chan Message, workers)
	for i := range shards {
		shards[i] = make(chan Message, queueSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sink:   sink,
		shards: shards,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Start launches one goroutine per shard.
func (d *Dispatcher) Start() {
	d.logger.Info("starting dispatcher", "workers", len(d.shards))
	for i, shard := range d.shards {
		d.wg.Add(1)
		go d.run(i, shard)
	}
}

// Stop signals all shards to finish, delivers whatever is already queued,
// and waits for the goroutines to exit. Publishes after Stop are dropped.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.logger.Info("stopping dispatcher")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("dispatcher stopped")
	})
}

// Publish encodes event and queues it on the topic's shard. It never blocks:
// a full shard drops the message and logs a broadcast failure.
func (d *Dispatcher) Publish(ctx context.Context, topic events.Topic, event any) {
	log := d.logger.With(slog.String("topic", string(topic)))

	if d.ctx.Err() != nil {
		log.WarnContext(ctx, "dropping event", "error", ErrDispatcherStopped)
		return
	}

	msg, err := NewMessage(topic, event)
	if err != nil {
		log.ErrorContext(ctx, "failed to encode event", "error", err)
		return
	}

	select {
	case d.shards[d.shardFor(topic)] <- msg:
	default:
		log.WarnContext(ctx, "dropping event, dispatcher queue full", "error", ErrBroadcastFailure)
	}
}

func (d *Dispatcher) shardFor(topic events.Topic) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher) run(id int, shard <-chan Message) {
	defer d.wg.Done()
	log := d.logger.With(slog.Int("shard", id))

	for {
		select {
		case <-d.ctx.Done():
			for {
				select {
				case msg := <-shard:
					d.deliver(log, msg)
				default:
					return
				}
			}
		case msg := <-shard:
			d.deliver(log, msg)
		}
	}
}

func (d *Dispatcher) deliver(log *slog.Logger, msg Message) {
	// Delivery runs detached from the publisher's request context, which
	// is usually gone by now.
	if err := d.sink.Deliver(context.Background(), msg); err != nil {
		log.Warn("event delivery failed",
			slog.String("topic", string(msg.Topic)),
			slog.String("error", err.Error()))
	}
}
