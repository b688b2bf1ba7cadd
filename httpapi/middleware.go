package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"driva/auth"
	"driva/requestctx"
)

// TokenVerifier validates a bearer token and reports who presented it.
type TokenVerifier interface {
	VerifyToken(tokenString string) (string, auth.Role, error)
}

// RequireAuth validates the Authorization header and places the caller's id
// and role into the request context for handlers and services.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(r.Context(), "unauthorized access - missing token", "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":   "unauthorized",
					"message": "missing or invalid Authorization header",
				})
				return
			}

			userID, role, err := verifier.VerifyToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token", "path", r.URL.Path, "error", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":   "unauthorized",
					"message": "invalid or expired token",
				})
				return
			}

			ctx := requestctx.WithCaller(r.Context(), userID, string(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to the listed roles. It must run after
// RequireAuth; an empty role in context is rejected.
func RequireRole(logger *slog.Logger, roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := requestctx.Role(r.Context())
			if _, ok := allowed[role]; !ok {
				logger.WarnContext(r.Context(), "forbidden access", "path", r.URL.Path, "role", role)
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error":   "forbidden",
					"message": "caller role does not permit this action",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
