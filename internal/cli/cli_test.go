package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/phrazzld/taskboard-api/internal/platform/memory"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret-that-is-long-enough-000"

func testConfig() *config.Config {
	return &config.Config{
		Auth:     config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 30},
		Ordering: config.OrderingConfig{CollisionEpsilon: 1e-9, MaxMoveAttempts: 3},
	}
}

func memoryEnv(tasks *memory.TaskStore) *Env {
	return &Env{
		LoadConfig: func() (*config.Config, error) { return testConfig(), nil },
		Open: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return &Backend{Tasks: tasks}, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func execute(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(env)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, tasks *memory.TaskStore, ws uuid.UUID, positions ...float64) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(positions))
	for i, pos := range positions {
		task, err := domain.NewTask(ws, uuid.New(), "task "+string(rune('a'+i)), domain.StatusTodo, pos)
		require.NoError(t, err)
		require.NoError(t, tasks.Create(context.Background(), task))
		ids = append(ids, task.ID)
	}
	return ids
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(memoryEnv(memory.NewTaskStore()))
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"column", "show"},
		{"column", "verify"},
		{"rebalance"},
		{"token"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v", path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))
	show, _, _ := cmd.Find([]string{"column", "show"})
	assert.NotNil(t, show.Flags().Lookup("project"))
	rebalance, _, _ := cmd.Find([]string{"rebalance"})
	assert.Nil(t, rebalance.Flags().Lookup("project"), "rebalance only works on workspace columns")
}

func TestInvalidFormatIsRejected(t *testing.T) {
	_, err := execute(t, memoryEnv(memory.NewTaskStore()), "--format", "yaml", "token", "--user", uuid.NewString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestColumnShow(t *testing.T) {
	tasks := memory.NewTaskStore()
	ws := uuid.New()
	ids := seed(t, tasks, ws, 2000, 1000)

	out, err := execute(t, memoryEnv(tasks), "column", "show", "--workspace", ws.String(), "--status", "TODO")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "workspace/"+ws.String())
	assert.Contains(t, lines[2], ids[1].String())
	assert.Contains(t, lines[3], ids[0].String())

	out, err = execute(t, memoryEnv(tasks), "--format", "json", "column", "show", "--workspace", ws.String(), "--status", "todo")
	require.NoError(t, err)
	var got columnOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "todo", got.Status)
	assert.Equal(t, []ordering.Entry{{TaskID: ids[1], Position: 1000}, {TaskID: ids[0], Position: 2000}}, got.Entries)
}

func TestColumnFlagErrors(t *testing.T) {
	env := memoryEnv(memory.NewTaskStore())
	ws := uuid.NewString()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing scope", []string{"column", "show", "--status", "todo"}, "--workspace or --project is required"},
		{"both scopes", []string{"column", "show", "--status", "todo", "--workspace", ws, "--project", ws}, "either --workspace or --project"},
		{"bad workspace", []string{"column", "show", "--status", "todo", "--workspace", "nope"}, "invalid --workspace"},
		{"bad status", []string{"column", "verify", "--status", "later", "--workspace", ws}, "status"},
		{"missing status", []string{"column", "show", "--workspace", ws}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, env, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestColumnVerify(t *testing.T) {
	tasks := memory.NewTaskStore()
	ws := uuid.New()
	seed(t, tasks, ws, 1000, 2000)

	out, err := execute(t, memoryEnv(tasks), "column", "verify", "--workspace", ws.String(), "--status", "todo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OK "))

	seed(t, tasks, ws, 2000)
	out, err = execute(t, memoryEnv(tasks), "column", "verify", "--workspace", ws.String(), "--status", "todo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderViolation))
	assert.True(t, strings.HasPrefix(out, "FAIL "))
}

func TestRebalance(t *testing.T) {
	tasks := memory.NewTaskStore()
	ws := uuid.New()
	ids := seed(t, tasks, ws, 1000, 1000.25, 1000.5)

	_, err := execute(t, memoryEnv(tasks), "rebalance", "--workspace", ws.String(), "--status", "todo")
	require.NoError(t, err)

	col, err := tasks.LoadColumn(context.Background(), ordering.WorkspaceScope(ws), domain.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, ids, col.TaskIDs())
	assert.Equal(t, []float64{1000, 2000, 3000}, col.Positions())
}

func TestToken(t *testing.T) {
	user := uuid.New()
	out, err := execute(t, memoryEnv(memory.NewTaskStore()),
		"token", "--user", user.String(), "--email", "ada@example.com", "--name", "Ada")
	require.NoError(t, err)

	tokens, err := auth.NewJWTService(testConfig().Auth)
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, user, claims.Principal().UserID)
	assert.Equal(t, "Ada", claims.Principal().Name)

	_, err = execute(t, memoryEnv(memory.NewTaskStore()), "token", "--user", uuid.Nil.String())
	require.Error(t, err)
}

func TestMigrateRequiresDatabase(t *testing.T) {
	_, err := execute(t, memoryEnv(memory.NewTaskStore()), "migrate", "up")
	assert.ErrorIs(t, err, errNoDatabase)
}
