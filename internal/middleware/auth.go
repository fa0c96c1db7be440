// Package middleware provides HTTP middlewares for authentication, logging
// and metrics.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/studysync/internal/models"
	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenHeader is the request header that carries the access token.
const TokenHeader = "token"

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// UserLookup loads a user by id.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// TokenAuth rejects requests without a valid token header with 401.
// On success the user id is stored in the request context.
func TokenAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(TokenHeader)
			if raw == "" {
				deny(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			userID, err := verifier.Verify(raw)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Token is not valid")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// RequireAdmin lets the request through only when the authenticated user
// has the admin role. It must run after TokenAuth. Lookup failures are
// logged to log.
func RequireAdmin(users UserLookup, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetUserIDFromContext(r.Context())
			if id == "" {
				deny(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			u, err := users.GetUser(r.Context(), id)
			switch {
			case errors.Is(err, models.ErrNotFound):
				deny(w, http.StatusUnauthorized, "User not found")
				return
			case err != nil:
				log.Error("admin check failed",
					zap.String("user_id", id),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				deny(w, http.StatusInternalServerError, "internal error")
				return
			}
			if u.Role != models.RoleAdmin {
				deny(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}

// ContextWithUserID returns a copy of ctx carrying the user id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// GetUserIDFromContext extracts the authenticated user id from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
