package api

import (
	"context"
	"net/http"
	"strings"

	"cityhall.ro/civic-assistant/internal/auth"
	"cityhall.ro/civic-assistant/internal/store"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// CurrentUser is the caller identity resolved from the bearer token.
type CurrentUser struct {
	ID   string
	Role string
}

// JWTAuthMiddleware resolves the bearer token into a CurrentUser and rejects
// requests without a valid one.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ValidateJWT(h.jwtSecret, tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user := CurrentUser{ID: claims.UserID, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), currentUserKey, user)))
	})
}

// AdminOnly fails closed: anything but an authenticated admin is forbidden.
func (h *APIHandler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok || user.Role != store.RoleAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFrom(r *http.Request) (CurrentUser, bool) {
	user, ok := r.Context().Value(currentUserKey).(CurrentUser)
	return user, ok
}
