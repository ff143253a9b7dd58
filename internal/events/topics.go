package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidTopic is returned when a topic string is not one the board publishes.
var ErrInvalidTopic = errors.New("invalid topic")

// Topic is a publish destination such as "workspace/{id}/tasks".
type Topic string

// Scope of a topic: the kind of board it belongs to.
const (
	TopicScopeWorkspace = "workspace"
	TopicScopeProject   = "project"
)

// Channel names under a scope.
const (
	ChannelTasks    = "tasks"
	ChannelKanban   = "kanban"
	ChannelActivity = "activity"
	ChannelPresence = "presence"
)

func topic(scope string, id uuid.UUID, channel string) Topic {
	return Topic(fmt.Sprintf("%s/%s/%s", scope, id, channel))
}

// WorkspaceTasks carries every task change in a workspace.
func WorkspaceTasks(id uuid.UUID) Topic { return topic(TopicScopeWorkspace, id, ChannelTasks) }

// ProjectTasks carries task changes for one project.
func ProjectTasks(id uuid.UUID) Topic { return topic(TopicScopeProject, id, ChannelTasks) }

// WorkspaceKanban carries changes that reorder the board.
func WorkspaceKanban(id uuid.UUID) Topic { return topic(TopicScopeWorkspace, id, ChannelKanban) }

// WorkspaceActivity carries the human-readable activity feed.
func WorkspaceActivity(id uuid.UUID) Topic { return topic(TopicScopeWorkspace, id, ChannelActivity) }

// WorkspacePresence carries online/offline announcements.
func WorkspacePresence(id uuid.UUID) Topic { return topic(TopicScopeWorkspace, id, ChannelPresence) }

// TopicRef is a parsed topic.
type TopicRef struct {
	Scope   string
	ID      uuid.UUID
	Channel string
}

// Topic reassembles the reference into its string form.
func (r TopicRef) Topic() Topic {
	return topic(r.Scope, r.ID, r.Channel)
}

// ParseTopic validates a topic string supplied by a client.
func ParseTopic(s string) (TopicRef, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return TopicRef{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return TopicRef{}, fmt.Errorf("%w: %q: bad id", ErrInvalidTopic, s)
	}
	ref := TopicRef{Scope: parts[0], ID: id, Channel: parts[2]}

	switch ref.Scope {
	case TopicScopeWorkspace:
		switch ref.Channel {
		case ChannelTasks, ChannelKanban, ChannelActivity, ChannelPresence:
			return ref, nil
		}
	case TopicScopeProject:
		if ref.Channel == ChannelTasks {
			return ref, nil
		}
	}
	return TopicRef{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
}
