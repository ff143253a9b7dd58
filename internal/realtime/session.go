package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/broadcast"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
)

// Session is one live connection. Frames for it are queued on a bounded
// outbound channel drained by a single writer, so frames reach the client
// in the order they were queued.
type Session struct {
	id          string
	principal   auth.Principal
	connectedAt time.Time

	mu     sync.Mutex
	out    chan []byte
	closed bool
	joined map[uuid.UUID]struct{}
}

var _ broadcast.Subscriber = (*Session)(nil)

func newSession(principal auth.Principal, buffer int, now time.Time) *Session {
	return &Session{
		id:          uuid.NewString(),
		principal:   principal,
		connectedAt: now,
		out:         make(chan []byte, buffer),
		joined:      make(map[uuid.UUID]struct{}),
	}
}

// ID returns the connection ID.
func (s *Session) ID() string { return s.id }

// Principal returns the identity the connection authenticated as.
func (s *Session) Principal() auth.Principal { return s.principal }

// ConnectedAt returns when the session was registered.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// SubscriberID implements broadcast.Subscriber.
func (s *Session) SubscriberID() string { return s.id }

// Send implements broadcast.Subscriber.
func (s *Session) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// Outbound is the queue the connection writer drains. It is closed when the
// session is disconnected.
func (s *Session) Outbound() <-chan []byte {
	return s.out
}

// JoinedWorkspaces returns the workspaces the session announced presence in.
func (s *Session) JoinedWorkspaces() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.joined))
	for id := range s.joined {
		out = append(out, id)
	}
	return out
}

func (s *Session) markJoined(workspaceID uuid.UUID, joined bool) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, was := s.joined[workspaceID]
	if joined {
		s.joined[workspaceID] = struct{}{}
	} else {
		delete(s.joined, workspaceID)
	}
	return was != joined
}

// close stops accepting frames and returns the workspaces still joined.
func (s *Session) close() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.out)

	out := make([]uuid.UUID, 0, len(s.joined))
	for id := range s.joined {
		out = append(out, id)
	}
	s.joined = map[uuid.UUID]struct{}{}
	return out
}
