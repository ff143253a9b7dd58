package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/events"
	"github.com/phrazzld/taskboard-api/internal/platform/memory"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 1, LogLevel: "debug", ShutdownTimeoutSeconds: 2},
		Auth: config.AuthConfig{
			JWTSecret:            "integration-secret-with-at-least-32-chars",
			TokenLifetimeMinutes: 5,
		},
		Redis:     config.RedisConfig{URL: redisURL, Channel: "taskboard:test"},
		Broadcast: config.BroadcastConfig{Workers: 2, QueueSize: 64, ClientBuffer: 64},
		Ordering:  config.OrderingConfig{CollisionEpsilon: 1e-6, MaxMoveAttempts: 3},
	}
}

type instance struct {
	app  *application
	addr string
	done chan error
}

// startInstance runs an application on a random port. Instances built on
// the same stores behave like API servers sharing one database.
func startInstance(
	t *testing.T,
	ctx context.Context,
	cfg *config.Config,
	tasks *memory.TaskStore,
	dir *memory.Directory,
	rdb *redis.Client,
) *instance {
	t.Helper()

	deps := dependencies{tasks: tasks, users: dir, access: dir, redis: rdb}
	app, err := newApplication(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), deps)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	inst := &instance{app: app, addr: ln.Addr().String(), done: make(chan error, 1)}
	go func() { inst.done <- app.run(ctx, ln) }()

	if app.relay != nil {
		select {
		case <-app.relay.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not subscribe")
		}
	}
	return inst
}

func (i *instance) token(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, err := i.app.tokens.GenerateToken(context.Background(), p)
	require.NoError(t, err)
	return token
}

func TestHealthAndAuthentication(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inst := startInstance(t, ctx, testConfig(""), memory.NewTaskStore(), memory.NewDirectory(), nil)

	resp, err := http.Get("http://" + inst.addr + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get("http://" + inst.addr + "/api/statuses")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-inst.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestEventsCrossInstancesThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tasks := memory.NewTaskStore()
	dir := memory.NewDirectory()
	member := auth.Principal{UserID: uuid.New(), Name: "Ada"}
	workspace := uuid.New()
	dir.AddUser(domain.User{ID: member.UserID, Name: member.Name})
	dir.AddMember(workspace, member.UserID)

	cfg := testConfig("redis://" + mr.Addr())
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	writer := startInstance(t, ctx, cfg, tasks, dir, newClient())
	viewer := startInstance(t, ctx, cfg, tasks, dir, newClient())

	// A viewer connected to the second instance subscribes to the board.
	header := http.Header{}
	header.Set("Authorization", "Bearer "+viewer.token(t, member))
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+viewer.addr+"/ws", header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	topic := string(events.WorkspaceTasks(workspace))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "topic": topic}))
	ack := readJSON(t, conn)
	require.Equal(t, "ack", ack["type"], "unexpected frame %v", ack)

	// The task is created through the first instance.
	payload, _ := json.Marshal(map[string]string{"name": "Cross-instance task"})
	req, err := http.NewRequest(http.MethodPost,
		"http://"+writer.addr+"/api/workspaces/"+workspace.String()+"/tasks", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+writer.token(t, member))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	frame := readJSON(t, conn)
	assert.Equal(t, topic, frame["topic"])
	event, ok := frame["event"].(map[string]any)
	require.True(t, ok, "frame %v has no event", frame)
	assert.Equal(t, string(events.KindTaskCreated), event["event_type"])
	assert.Equal(t, 1, tasks.Len())
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
