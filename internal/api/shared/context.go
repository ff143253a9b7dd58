package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/service/auth"
)

// ContextKey is the type of the request-context keys set by the API
// middleware.
type ContextKey string

const (
	// PrincipalContextKey holds the authenticated auth.Principal.
	PrincipalContextKey ContextKey = "principal"

	// TraceIDKey holds the trace ID used to correlate logs and error responses.
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID stores traceID in the context, generating one when it is empty.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFrom returns the authenticated principal. ok is false when the
// request was not authenticated.
func PrincipalFrom(ctx context.Context) (p auth.Principal, ok bool) {
	p, ok = ctx.Value(PrincipalContextKey).(auth.Principal)
	if !ok || p.UserID == uuid.Nil {
		return auth.Principal{}, false
	}
	return p, true
}
