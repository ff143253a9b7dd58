package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskboard-api/internal/access"
	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
)

// Client frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameJoin        = "join"
	FrameLeave       = "leave"
	FramePing        = "ping"
)

// ClientFrame is a request sent by a client over the socket.
type ClientFrame struct {
	Type        string `json:"type"`
	Topic       string `json:"topic,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// ControlFrame is the server's reply to a ClientFrame. Event frames carry a
// topic and an event instead and have no type.
type ControlFrame struct {
	Type        string `json:"type"`
	Action      string `json:"action,omitempty"`
	Topic       string `json:"topic,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HandlerConfig holds websocket timing settings.
type HandlerConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxFrameBytes  int64
	AllowedOrigins []string
}

// DefaultHandlerConfig returns the timing used in production.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		WriteWait:     10 * time.Second,
		PongWait:      60 * time.Second,
		PingInterval:  50 * time.Second,
		MaxFrameBytes: 4096,
	}
}

// Handler upgrades authenticated HTTP requests to websocket connections and
// bridges them to the Registry.
type Handler struct {
	registry *Registry
	tokens   auth.JWTService
	upgrader websocket.Upgrader
	cfg      HandlerConfig
	logger   *slog.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(registry *Registry, tokens auth.JWTService, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if registry == nil || tokens == nil {
		panic("websocket handler requires a registry and a token service")
	}
	if logger == nil {
		panic("logger cannot be nil for websocket Handler")
	}
	def := DefaultHandlerConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = def.MaxFrameBytes
	}

	h := &Handler{
		registry: registry,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "websocket_handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	// Browsers cannot set headers on websocket requests.
	return r.URL.Query().Get("token")
}

// ServeHTTP authenticates the request, upgrades it, and runs the
// connection until either side closes it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.ValidateToken(r.Context(), bearerToken(r))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	session, err := h.registry.Connect(claims.Principal())
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(h.cfg.WriteWait))
		_ = conn.Close()
		return
	}

	log := h.logger.With(
		slog.String("connection_id", session.ID()),
		slog.String("user_id", session.Principal().UserID.String()))
	ctx := logger.WithLogger(context.Background(), log)

	// Closing the connection unblocks the read pump when the server shuts
	// down; Shutdown does not track hijacked connections.
	stop := context.AfterFunc(r.Context(), func() { _ = conn.Close() })
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, session, log)
	}()

	h.readPump(ctx, conn, session, log)

	h.registry.Disconnect(ctx, session.ID())
	<-done
	_ = conn.Close()
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, s *Session, log *slog.Logger) {
	conn.SetReadLimit(h.cfg.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(s, ControlFrame{Type: "error", Error: "malformed frame"})
			continue
		}
		h.reply(s, h.handleFrame(ctx, s, frame))
	}
}

func (h *Handler) handleFrame(ctx context.Context, s *Session, frame ClientFrame) ControlFrame {
	ack := ControlFrame{Type: "ack", Action: frame.Type, Topic: frame.Topic, WorkspaceID: frame.WorkspaceID}

	var err error
	switch frame.Type {
	case FrameSubscribe:
		err = h.registry.Subscribe(ctx, s.ID(), frame.Topic)
	case FrameUnsubscribe:
		err = h.registry.Unsubscribe(ctx, s.ID(), frame.Topic)
	case FrameJoin, FrameLeave:
		var workspaceID uuid.UUID
		workspaceID, err = uuid.Parse(frame.WorkspaceID)
		if err != nil {
			return ControlFrame{Type: "error", Action: frame.Type, Error: "invalid workspace_id"}
		}
		if frame.Type == FrameJoin {
			err = h.registry.Join(ctx, s.ID(), workspaceID)
		} else {
			err = h.registry.Leave(ctx, s.ID(), workspaceID)
		}
	case FramePing:
		err = h.registry.Ping(ctx, s.ID())
		ack = ControlFrame{Type: "pong"}
	default:
		return ControlFrame{Type: "error", Action: frame.Type, Error: "unknown frame type"}
	}

	if err != nil {
		return ControlFrame{
			Type:        "error",
			Action:      frame.Type,
			Topic:       frame.Topic,
			WorkspaceID: frame.WorkspaceID,
			Error:       clientMessage(err),
		}
	}
	return ack
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, access.ErrAccessDenied):
		return "access denied"
	case errors.Is(err, events.ErrInvalidTopic):
		return "invalid topic"
	case errors.Is(err, ErrUnknownSession):
		return "session closed"
	default:
		return "request failed"
	}
}

func (h *Handler) reply(s *Session, frame ControlFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if !s.Send(data) {
		h.logger.Warn("dropped control frame for slow connection",
			slog.String("connection_id", s.ID()),
			slog.String("type", frame.Type))
	}
}

func (h *Handler) writePump(conn *websocket.Conn, s *Session, log *slog.Logger) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-s.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug("websocket write failed", "error", err)
				// Unblock the reader so the session is torn down.
				_ = conn.Close()
				for range s.Outbound() {
				}
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				for range s.Outbound() {
				}
				return
			}
		}
	}
}
