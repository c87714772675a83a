// Package auth carries per-request identity through context: the tenant
// every cache key and store query is scoped to, the request ID used for
// log correlation, and the hashed user identity recorded on selection
// events.
package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	tenantIDKey   contextKey = "tenant_id"
	requestIDKey  contextKey = "request_id"
	userIDHashKey contextKey = "user_id_hash"
)

// WithTenantID adds the tenant ID to context.
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetTenantID returns the tenant ID from context, or uuid.Nil when absent.
func GetTenantID(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(tenantIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// TenantFromContext returns the tenant ID and whether one is present.
func TenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(tenantIDKey).(uuid.UUID)
	return v, ok && v != uuid.Nil
}

// WithRequestID adds the request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID from context, or "" when absent.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserIDHash adds the hashed user identity to context.
func WithUserIDHash(ctx context.Context, userIDHash string) context.Context {
	return context.WithValue(ctx, userIDHashKey, userIDHash)
}

// GetUserIDHash returns the hashed user identity, or "" when absent.
func GetUserIDHash(ctx context.Context) string {
	if v, ok := ctx.Value(userIDHashKey).(string); ok {
		return v
	}
	return ""
}
