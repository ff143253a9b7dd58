// Package broadcast fans board events out to realtime subscribers.
//
// Publishing is fire-and-forget: a Dispatcher accepts a message, hashes its
// topic onto one of a fixed set of shards, and returns immediately. Each
// shard is drained by a single goroutine, so messages published to the same
// topic reach the Sink in publish order. The Sink is either the local Hub or
// a RedisRelay that forwards through redis to the Hub of every instance.
//
// The Hub holds the topic → subscriber table and hands each frame to the
// subscriber's own bounded queue without blocking. Delivery is at most once:
// a subscriber that is not registered when a message is delivered, or whose
// queue is full, never sees it, and nothing is replayed.
package broadcast
