package logging

import (
	"context"

	"go.uber.org/zap"
)

type tenantCtxKey struct{}
type requestCtxKey struct{}

// WithTenantID returns a context carrying the tenant identifier for log
// correlation.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}

// TenantIDFromContext returns the tenant id stored in ctx, or "".
func TenantIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(tenantCtxKey{}).(string)
	return id
}

// WithRequestID returns a context carrying the request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if tenantID := TenantIDFromContext(ctx); tenantID != "" {
		fields = append(fields, zap.String("tenant.id", tenantID))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	return fields
}
