package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/ovehub/asset-manager/internal/domain"
)

// ContextKey is the key type for request context values.
type ContextKey string

const (
	// UserContextKey carries the authenticated caller's access descriptor.
	UserContextKey ContextKey = "user"

	// TraceIDKey carries the per-request trace ID.
	TraceIDKey ContextKey = "traceID"

	traceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a freshly generated trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SetUser adds the authenticated caller to the context.
func SetUser(ctx context.Context, user domain.UserAccess) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUser retrieves the authenticated caller from the context.
func GetUser(ctx context.Context) (domain.UserAccess, bool) {
	user, ok := ctx.Value(UserContextKey).(domain.UserAccess)
	return user, ok
}

func generateTraceID() string {
	b := make([]byte, traceIDLength)
	// rand.Read never fails on supported platforms; a short read would only
	// shorten the ID, not break correlation.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
