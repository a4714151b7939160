package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nistake0/bookmemo-server/internal/service"
)

type ctxKey string

const (
	ctxKeyUserID ctxKey = "userID"
	ctxKeyIsRoot ctxKey = "isRoot"
)

// GetUserID extracts the authenticated user ID from the request context.
// Returns a 401 error if the request was not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(ctxKeyUserID).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("authentication required")
	}
	return userID, nil
}

// IsRoot reports whether the authenticated user has root privileges.
func IsRoot(ctx context.Context) bool {
	isRoot, ok := ctx.Value(ctxKeyIsRoot).(bool)
	return ok && isRoot
}

// RequireRoot returns a 403 error unless the authenticated user is root.
func RequireRoot(ctx context.Context) error {
	if !IsRoot(ctx) {
		return huma.Error403Forbidden("root privileges required")
	}
	return nil
}

// authMiddleware verifies the Authorization bearer token if present and
// stores the authenticated user in the request context. Requests without a
// valid token pass through unauthenticated; handlers that need a user call
// GetUserID and fail with 401.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if ok && token != "" {
				claims, err := auth.VerifyAccessToken(token)
				if err == nil {
					ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
					ctx = context.WithValue(ctx, ctxKeyIsRoot, claims.IsRoot)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
