package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFrom(WithPrincipal(context.Background(), auth.Principal{}))
	assert.False(t, ok, "a principal without a user ID is not authenticated")

	p := auth.Principal{UserID: uuid.New(), Name: "Ada"}
	got, ok := PrincipalFrom(WithPrincipal(context.Background(), p))
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"a"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"name":"a","extra":1}`, true},
		{"trailing object", `{"name":"a"}{"name":"b"}`, true},
		{"malformed", `{"name":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", p.Name)
		})
	}
}

func TestRespondWithErrorAndLogRedactsDetails(t *testing.T) {
	log, buf := logger.NewTestLogger()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	ctx := SetTraceID(req.Context(), "trace-1")
	ctx = logger.WithLogger(ctx, log)
	req = req.WithContext(ctx)
	rr := httptest.NewRecorder()

	RespondWithErrorAndLog(rr, req, http.StatusInternalServerError, "Failed to move task",
		errors.New("dial postgres://kanban:hunter2@db/kanban"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Error: "Failed to move task", TraceID: "trace-1"}, body)

	entries := buf.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.NotContains(t, entries[0]["error"], "hunter2")
	assert.NotContains(t, rr.Body.String(), "postgres")
}
