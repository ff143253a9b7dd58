package board

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/broadcast"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	f := newFixture(t)
	_, err := NewService(nil, f.dir, f.dir, f.pub, DefaultConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewService(f.tasks, nil, f.dir, f.pub, DefaultConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewService(f.tasks, f.dir, nil, f.pub, DefaultConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewService(f.tasks, f.dir, f.dir, nil, DefaultConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	svc, err := NewService(f.tasks, f.dir, f.dir, f.pub, Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), svc.cfg)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seed(t, "first", domain.StatusTodo, 1000)

	task, err := f.svc.Create(ctx, f.actor, CreateTaskInput{
		WorkspaceID: f.workspace,
		ProjectID:   f.project,
		Name:        "  Ship it  ",
		Description: "soon",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ship it", task.Name)
	assert.Equal(t, domain.DefaultStatus, task.Status)
	assert.Equal(t, 2000.0, task.Position)
	assert.Equal(t, f.actor, task.CreatedBy)

	head, err := f.svc.Create(ctx, f.actor, CreateTaskInput{
		WorkspaceID: f.workspace, Name: "urgent", Index: ptr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, head.Position)
	assert.Equal(t, []uuid.UUID{head.ID, first.ID, task.ID}, f.column(t, domain.StatusTodo).TaskIDs())

	f.pub.reset()
	_, err = f.svc.Create(ctx, f.actor, CreateTaskInput{
		WorkspaceID: f.workspace, ProjectID: f.project, Name: "evented", Status: domain.StatusDone,
	})
	require.NoError(t, err)
	assert.Equal(t, []events.Topic{
		events.WorkspaceTasks(f.workspace),
		events.ProjectTasks(f.project),
		events.WorkspaceKanban(f.workspace),
		events.WorkspaceActivity(f.workspace),
	}, f.pub.topics())
	ev := f.pub.lastEvent(t)
	assert.Equal(t, events.KindTaskCreated, ev.Kind)
	assert.Equal(t, "Ada created task: evented", ev.Message)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "occupant", domain.StatusTodo, 1000)

	tests := []struct {
		name  string
		actor uuid.UUID
		in    CreateTaskInput
		want  error
	}{
		{"empty name", f.actor, CreateTaskInput{WorkspaceID: f.workspace, Name: "  "}, ErrInvalidInput},
		{"unknown status", f.actor, CreateTaskInput{WorkspaceID: f.workspace, Name: "x", Status: "later"}, ErrInvalidInput},
		{"unknown assignee", f.actor, CreateTaskInput{WorkspaceID: f.workspace, Name: "x", AssigneeID: uuid.New()}, ErrInvalidInput},
		{"taken position", f.actor, CreateTaskInput{WorkspaceID: f.workspace, Name: "x", Position: ptr(1000.0)}, ErrInvalidTarget},
		{"not a member", uuid.New(), CreateTaskInput{WorkspaceID: f.workspace, Name: "x"}, ErrAccessDenied},
		{"foreign project", f.actor, CreateTaskInput{WorkspaceID: f.workspace, ProjectID: uuid.New(), Name: "x"}, ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 1, f.tasks.Len())
	assert.Empty(t, f.pub.all())
}

func TestUpdateEditsFields(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, "old", domain.StatusTodo, 1000)
	due := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	updated, err := f.svc.Update(context.Background(), f.actor, task.ID, UpdateTaskInput{
		Name:        ptr(" new "),
		Description: ptr("details"),
		DueAt:       &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, "details", updated.Description)
	require.NotNil(t, updated.DueAt)
	assert.True(t, due.Equal(*updated.DueAt))
	assert.Equal(t, 1000.0, updated.Position)

	ev := f.pub.lastEvent(t)
	assert.Equal(t, events.KindTaskUpdated, ev.Kind)
	assert.NotContains(t, f.pub.topics(), events.WorkspaceKanban(f.workspace))

	cleared, err := f.svc.Update(context.Background(), f.actor, task.ID, UpdateTaskInput{ClearDueAt: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueAt)

	_, err = f.svc.Update(context.Background(), f.actor, task.ID, UpdateTaskInput{Name: ptr("")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Update(context.Background(), f.actor, task.ID, UpdateTaskInput{Status: ptr(domain.TaskStatus("gone"))})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Update(context.Background(), uuid.New(), task.ID, UpdateTaskInput{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUpdateStatusAppendsToNewColumn(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "done already", domain.StatusDone, 1000)
	task := f.seed(t, "T", domain.StatusTodo, 1000)

	updated, err := f.svc.Update(context.Background(), f.actor, task.ID, UpdateTaskInput{
		Status: ptr(domain.StatusDone),
		Name:   ptr("T2"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, updated.Status)
	assert.Equal(t, 2000.0, updated.Position)
	assert.Equal(t, "T2", updated.Name)

	ev := f.pub.lastEvent(t)
	assert.Equal(t, events.KindTaskStatusChanged, ev.Kind)
	assert.Equal(t, domain.StatusTodo, ev.OldStatus)
	assert.Equal(t, domain.StatusDone, ev.NewStatus)
	assert.Equal(t, "Ada changed status of T2 from To Do to Done", ev.Message)
	assert.Contains(t, f.pub.topics(), events.WorkspaceKanban(f.workspace))
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, "T", domain.StatusTodo, 1000)
	grace := uuid.New()
	f.dir.AddUser(domain.User{ID: grace, Email: "grace@example.com"})
	f.dir.AddMember(f.workspace, grace)

	assigned, err := f.svc.Assign(context.Background(), f.actor, task.ID, grace)
	require.NoError(t, err)
	assert.Equal(t, grace, assigned.AssigneeID)

	ev := f.pub.lastEvent(t)
	assert.Equal(t, events.KindTaskAssigned, ev.Kind)
	require.NotNil(t, ev.Assignment)
	assert.Equal(t, "grace@example.com", ev.AssigneeName)
	assert.Equal(t, "Ada assigned T to grace@example.com", ev.Message)

	outsider := uuid.New()
	f.dir.AddUser(domain.User{ID: outsider, Name: "Out"})
	_, err = f.svc.Assign(context.Background(), f.actor, task.ID, outsider)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Assign(context.Background(), f.actor, task.ID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidInput)

	cleared, err := f.svc.Assign(context.Background(), f.actor, task.ID, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, cleared.HasAssignee())
	assert.Equal(t, events.KindTaskUpdated, f.pub.lastEvent(t).Kind)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, "T", domain.StatusTodo, 1000)

	require.NoError(t, f.svc.Delete(context.Background(), f.actor, task.ID))
	_, err := f.svc.Get(context.Background(), f.actor, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Zero(t, f.column(t, domain.StatusTodo).Len())
	assert.Equal(t, events.KindTaskDeleted, f.pub.lastEvent(t).Kind)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), f.actor, task.ID), ErrTaskNotFound)
}

func TestColumnViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, "A", domain.StatusTodo, 2000)
	b := f.seed(t, "B", domain.StatusTodo, 1000)
	b.ProjectID = f.project
	require.NoError(t, f.tasks.Update(ctx, b))

	col, err := f.svc.Column(ctx, f.actor, f.workspace, domain.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, col.TaskIDs())

	col, err = f.svc.ProjectColumn(ctx, f.actor, f.project, domain.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, col.TaskIDs())

	_, err = f.svc.Column(ctx, uuid.New(), f.workspace, domain.StatusTodo)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.svc.ProjectColumn(ctx, f.actor, uuid.New(), domain.StatusTodo)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.svc.Column(ctx, f.actor, f.workspace, "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRebalance(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, "A", domain.StatusTodo, -3)
	b := f.seed(t, "B", domain.StatusTodo, 0.5)
	c := f.seed(t, "C", domain.StatusTodo, 0.5000001)

	col, err := f.svc.Rebalance(context.Background(), f.actor, f.workspace, domain.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 2000, 3000}, col.Positions())

	stored := f.column(t, domain.StatusTodo)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, stored.TaskIDs())
	assert.Equal(t, []float64{1000, 2000, 3000}, stored.Positions())

	_, err = f.svc.Rebalance(context.Background(), uuid.New(), f.workspace, domain.StatusTodo)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUnknownActorIsCreditedAsUnknown(t *testing.T) {
	f := newFixture(t)
	ghost := uuid.New()
	f.dir.AddMember(f.workspace, ghost)
	task := f.seed(t, "T", domain.StatusTodo, 1000)

	_, err := f.svc.Move(context.Background(), ghost, MoveCommand{TaskID: task.ID, TargetStatus: domain.StatusDone})
	require.NoError(t, err)
	ev := f.pub.lastEvent(t)
	assert.Equal(t, domain.UnknownUserName, ev.UpdatedByName)
	assert.Equal(t, "Unknown moved T from To Do to Done", ev.Message)
}

// chanSubscriber collects frames delivered by a hub.
type chanSubscriber struct {
	id     string
	frames chan []byte
}

func (s *chanSubscriber) SubscriberID() string { return s.id }

func (s *chanSubscriber) Send(frame []byte) bool {
	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

func TestEventsReachSubscriberInOperationOrder(t *testing.T) {
	f := newFixture(t)
	hub := broadcast.NewHub(discardLogger())
	dispatcher := broadcast.NewDispatcher(hub, broadcast.DefaultDispatcherConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	sub := &chanSubscriber{id: "viewer", frames: make(chan []byte, 16)}
	hub.Subscribe(events.WorkspaceTasks(f.workspace), sub)

	svc, err := NewService(f.tasks, f.dir, f.dir, dispatcher, DefaultConfig(), discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	task, err := svc.Create(ctx, f.actor, CreateTaskInput{WorkspaceID: f.workspace, Name: "T"})
	require.NoError(t, err)
	_, err = svc.Move(ctx, f.actor, MoveCommand{TaskID: task.ID, TargetStatus: domain.StatusInProgress})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, f.actor, task.ID, f.actor)
	require.NoError(t, err)

	want := []events.Kind{events.KindTaskCreated, events.KindTaskMoved, events.KindTaskAssigned}
	for _, kind := range want {
		select {
		case frame := <-sub.frames:
			assert.Contains(t, string(frame), `"event_type":"`+string(kind)+`"`)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestColumnLocksReleaseEntries(t *testing.T) {
	l := newColumnLocks()
	unlock := l.lock("a")
	assert.Equal(t, 1, l.len())
	unlock()
	assert.Zero(t, l.len())
}
