package broadcast

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSubscriber collects frames in a bounded queue.
type testSubscriber struct {
	id     string
	frames chan []byte

	mu     sync.Mutex
	closed bool
}

func newTestSubscriber(id string, buffer int) *testSubscriber {
	return &testSubscriber{id: id, frames: make(chan []byte, buffer)}
}

func (s *testSubscriber) SubscriberID() string { return s.id }

func (s *testSubscriber) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

// next waits for the next frame and decodes its envelope.
func (s *testSubscriber) next(t *testing.T) Message {
	t.Helper()
	select {
	case frame := <-s.frames:
		var msg Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber %s: timed out waiting for frame", s.id)
		return Message{}
	}
}

// none asserts that no frame arrives within a short window.
func (s *testSubscriber) none(t *testing.T) {
	t.Helper()
	select {
	case frame := <-s.frames:
		t.Fatalf("subscriber %s: unexpected frame %s", s.id, frame)
	case <-time.After(50 * time.Millisecond):
	}
}

type seqEvent struct {
	Seq int `json:"seq"`
}

func decodeSeq(t *testing.T, msg Message) int {
	t.Helper()
	var ev seqEvent
	require.NoError(t, json.Unmarshal(msg.Event, &ev))
	return ev.Seq
}
