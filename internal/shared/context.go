package shared

import "context"

type userIDContextKey struct{}

type auditLogIDContextKey struct{}

// ContextWithUserID stores the authenticated user id in context. Anonymous
// requests never call this; UserIDFromContext then reports ok=false.
func ContextWithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, id)
}

// UserIDFromContext extracts the authenticated user id from context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(int64)
	return id, ok
}

// ContextWithAuditLogID stores the audit log id written for this request so
// downstream handlers can correlate follow-up records with it.
func ContextWithAuditLogID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, auditLogIDContextKey{}, id)
}

// AuditLogIDFromContext extracts the audit log id from context.
func AuditLogIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(auditLogIDContextKey{}).(int64)
	return id, ok
}
