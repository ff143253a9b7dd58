package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/broadcast"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
)

var (
	// ErrNoPrincipal is returned when a connection is registered without an
	// authenticated user. The transport rejects such connections at handshake.
	ErrNoPrincipal = errors.New("connection has no authenticated principal")

	// ErrUnknownSession is returned for operations on a connection ID that
	// is not (or no longer) registered.
	ErrUnknownSession = errors.New("unknown session")
)

// RegistryConfig holds configuration options for the registry.
type RegistryConfig struct {
	// ClientBuffer bounds each session's outbound queue.
	ClientBuffer int
}

// Registry is the session table plus the subscription operations clients
// perform on it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	hub       *broadcast.Hub
	publisher broadcast.Publisher
	access    access.Checker
	buffer    int
	now       func() time.Time
	logger    *slog.Logger
}

// NewRegistry creates a registry that subscribes sessions on hub, publishes
// presence through publisher and authorizes topics with checker.
func NewRegistry(
	hub *broadcast.Hub,
	publisher broadcast.Publisher,
	checker access.Checker,
	cfg RegistryConfig,
	logger *slog.Logger,
) *Registry {
	if hub == nil || publisher == nil || checker == nil {
		panic("registry requires a hub, a publisher and an access checker")
	}
	if logger == nil {
		panic("logger cannot be nil for Registry")
	}
	buffer := cfg.ClientBuffer
	if buffer <= 0 {
		buffer = 1
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		hub:       hub,
		publisher: publisher,
		access:    checker,
		buffer:    buffer,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "session_registry")),
	}
}

// Connect registers a new session for an authenticated principal.
func (r *Registry) Connect(principal auth.Principal) (*Session, error) {
	if principal.UserID == uuid.Nil {
		return nil, ErrNoPrincipal
	}
	s := newSession(principal, r.buffer, r.now())

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.logger.Info("session connected",
		slog.String("connection_id", s.id),
		slog.String("user_id", principal.UserID.String()))
	return s, nil
}

// Session looks up a registered session.
func (r *Registry) Session(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) lookup(connID string) (*Session, error) {
	s, ok := r.Session(connID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, connID)
	}
	return s, nil
}

func (r *Registry) authorize(ctx context.Context, userID uuid.UUID, ref events.TopicRef) error {
	switch ref.Scope {
	case events.TopicScopeProject:
		return r.access.CheckProject(ctx, userID, ref.ID)
	default:
		return r.access.CheckWorkspace(ctx, userID, ref.ID)
	}
}

// Subscribe starts delivering topic to the session after checking that its
// principal may see the topic's board.
func (r *Registry) Subscribe(ctx context.Context, connID, topic string) error {
	s, err := r.lookup(connID)
	if err != nil {
		return err
	}
	ref, err := events.ParseTopic(topic)
	if err != nil {
		return err
	}
	if err := r.authorize(ctx, s.principal.UserID, ref); err != nil {
		r.logger.DebugContext(ctx, "subscription refused",
			slog.String("connection_id", connID),
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		return err
	}

	r.hub.Subscribe(ref.Topic(), s)
	r.logger.DebugContext(ctx, "subscribed",
		slog.String("connection_id", connID),
		slog.String("topic", topic))
	return nil
}

// Unsubscribe stops delivering topic to the session.
func (r *Registry) Unsubscribe(ctx context.Context, connID, topic string) error {
	s, err := r.lookup(connID)
	if err != nil {
		return err
	}
	ref, err := events.ParseTopic(topic)
	if err != nil {
		return err
	}
	r.hub.Unsubscribe(ref.Topic(), s.id)
	return nil
}

// Join subscribes the session to the workspace's presence topic and
// announces the user as online there.
func (r *Registry) Join(ctx context.Context, connID string, workspaceID uuid.UUID) error {
	s, err := r.lookup(connID)
	if err != nil {
		return err
	}
	if err := r.access.CheckWorkspace(ctx, s.principal.UserID, workspaceID); err != nil {
		return err
	}

	r.hub.Subscribe(events.WorkspacePresence(workspaceID), s)
	s.markJoined(workspaceID, true)
	r.publishPresence(ctx, s, workspaceID, true)
	return nil
}

// Leave announces the user as offline in the workspace and drops the
// session's presence subscription.
func (r *Registry) Leave(ctx context.Context, connID string, workspaceID uuid.UUID) error {
	s, err := r.lookup(connID)
	if err != nil {
		return err
	}
	if !s.markJoined(workspaceID, false) {
		return nil
	}
	r.hub.Unsubscribe(events.WorkspacePresence(workspaceID), s.id)
	r.publishPresence(ctx, s, workspaceID, false)
	return nil
}

// Ping records client liveness. It has no other effect.
func (r *Registry) Ping(ctx context.Context, connID string) error {
	s, err := r.lookup(connID)
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "ping",
		slog.String("connection_id", connID),
		slog.String("user_id", s.principal.UserID.String()))
	return nil
}

// Disconnect removes the session, drops all of its subscriptions, announces
// it offline in every workspace it joined and closes its outbound queue.
func (r *Registry) Disconnect(ctx context.Context, connID string) {
	r.mu.Lock()
	s, ok := r.sessions[connID]
	delete(r.sessions, connID)
	r.mu.Unlock()
	if !ok {
		return
	}

	r.hub.UnsubscribeAll(s.id)
	for _, workspaceID := range s.close() {
		r.publishPresence(ctx, s, workspaceID, false)
	}

	r.logger.Info("session disconnected",
		slog.String("connection_id", connID),
		slog.String("user_id", s.principal.UserID.String()),
		slog.Duration("duration", r.now().Sub(s.connectedAt)))
}

func (r *Registry) publishPresence(ctx context.Context, s *Session, workspaceID uuid.UUID, online bool) {
	r.publisher.Publish(ctx,
		events.WorkspacePresence(workspaceID),
		events.NewPresence(s.principal.UserID, online, r.now()))
}
