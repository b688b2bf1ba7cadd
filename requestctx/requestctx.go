// Package requestctx provides HTTP-independent accessors for request-scoped
// caller identity. Middleware sets these values; services read them without
// importing net/http.
package requestctx

import "context"

type (
	userIDKey struct{}
	roleKey   struct{}
)

// WithCaller injects the authenticated caller's id and role into the context.
func WithCaller(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	return context.WithValue(ctx, roleKey{}, role)
}

// UserID retrieves the authenticated caller id, or "" when unset.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Role retrieves the authenticated caller role, or "" when unset.
func Role(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey{}).(string); ok {
		return role
	}
	return ""
}
