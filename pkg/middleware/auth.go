package middleware

import (
	"encoding/json"
	"net/http"

	"justanote/pkg/errors"
	"justanote/pkg/models"
)

// AuthManager interface for authentication operations
type AuthManager interface {
	IsAuthenticated(r *http.Request) *models.Session
}

// RequireAdmin rejects requests without an admin session
func RequireAdmin(authManager AuthManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := authManager.IsAuthenticated(r)
			if session == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(errors.ToFrontendError(errors.ErrNotAuthenticated))
				return
			}
			next.ServeHTTP(w, r.WithContext(withAdmin(r.Context(), session)))
		})
	}
}
