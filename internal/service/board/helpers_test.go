package board

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/platform/memory"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic events.Topic
	event any
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic events.Topic, event any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, published{topic: topic, event: event})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.got...)
}

func (p *recordingPublisher) topics() []events.Topic {
	var out []events.Topic
	for _, m := range p.all() {
		out = append(out, m.topic)
	}
	return out
}

// lastEvent returns the event of the most recent publish.
func (p *recordingPublisher) lastEvent(t *testing.T) events.UpdateEvent {
	t.Helper()
	all := p.all()
	require.NotEmpty(t, all, "nothing was published")
	ev, ok := all[len(all)-1].event.(events.UpdateEvent)
	require.True(t, ok, "published %T, want events.UpdateEvent", all[len(all)-1].event)
	return ev
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = nil
}

type fixture struct {
	svc       *Service
	tasks     *memory.TaskStore
	dir       *memory.Directory
	pub       *recordingPublisher
	actor     uuid.UUID
	workspace uuid.UUID
	project   uuid.UUID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks:     memory.NewTaskStore(),
		dir:       memory.NewDirectory(),
		pub:       &recordingPublisher{},
		actor:     uuid.New(),
		workspace: uuid.New(),
		project:   uuid.New(),
	}
	f.dir.AddUser(domain.User{ID: f.actor, Email: "ada@example.com", Name: "Ada"})
	f.dir.AddMember(f.workspace, f.actor)
	f.dir.AddProject(f.project, f.workspace)

	svc, err := NewService(f.tasks, f.dir, f.dir, f.pub,
		Config{MaxAttempts: 3, CollisionEpsilon: ordering.DefaultEpsilon}, discardLogger())
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seed stores a task directly, bypassing the service.
func (f *fixture) seed(t *testing.T, name string, status domain.TaskStatus, pos float64) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(f.workspace, f.actor, name, status, pos)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func (f *fixture) column(t *testing.T, status domain.TaskStatus) ordering.Column {
	t.Helper()
	col, err := f.tasks.LoadColumn(context.Background(), ordering.WorkspaceScope(f.workspace), status)
	require.NoError(t, err)
	return col
}

func ptr[T any](v T) *T { return &v }
