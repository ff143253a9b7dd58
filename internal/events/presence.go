package events

import (
	"time"

	"github.com/google/uuid"
)

// PresenceEvent announces that a user joined or left a workspace.
type PresenceEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Online    bool      `json:"online"`
	Timestamp int64     `json:"timestamp"`
}

// NewPresence builds a presence event stamped in unix milliseconds.
func NewPresence(userID uuid.UUID, online bool, at time.Time) PresenceEvent {
	return PresenceEvent{UserID: userID, Online: online, Timestamp: at.UnixMilli()}
}
