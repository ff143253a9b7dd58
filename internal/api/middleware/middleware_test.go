package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/api/shared"
	"github.com/phrazzld/taskboard-api/internal/mocks"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name           string
		authHeader     string
		claims         *auth.Claims
		validateErr    error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer good",
			claims:         &auth.Claims{UserID: userID, Name: "Ada"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing header",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Authorization header required",
		},
		{
			name:           "wrong scheme",
			authHeader:     "Basic abc",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization format",
		},
		{
			name:           "empty bearer",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization format",
		},
		{
			name:           "expired token",
			authHeader:     "Bearer old",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Token expired",
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer bad",
			validateErr:    auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid token",
		},
		{
			name:           "unexpected failure",
			authHeader:     "Bearer boom",
			validateErr:    errors.New("keystore unavailable"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Authentication error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens := &mocks.MockJWTService{Claims: tt.claims, ValidateErr: tt.validateErr}
			var seen auth.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := shared.PrincipalFrom(r.Context())
				require.True(t, ok)
				seen = p
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			NewAuthMiddleware(tokens).Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				var body shared.ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedError, body.Error)
				return
			}
			assert.Equal(t, userID, seen.UserID)
			assert.Equal(t, "Ada", seen.Name)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	base, buf := logger.NewTestLogger()

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("handled")
	})

	t.Run("reuses the chi request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, "req-42"))
		TraceMiddleware(base)(next).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "req-42", traceID)
		var found bool
		for _, e := range buf.Entries() {
			if e["msg"] == "handled" {
				found = true
				assert.Equal(t, "req-42", e["trace_id"])
			}
		}
		assert.True(t, found, "handler log entry missing")
	})

	t.Run("generates an id otherwise", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		TraceMiddleware(base)(next).ServeHTTP(httptest.NewRecorder(), req)

		_, err := uuid.Parse(traceID)
		assert.NoError(t, err)
	})
}
