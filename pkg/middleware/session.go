package middleware

import (
	"context"
	"net/http"
	"time"

	"justanote/pkg/models"
	"justanote/pkg/utils"
)

const (
	// WizardCookie identifies a note creation session
	WizardCookie = "jan_wizard"
	// ViewerCookie identifies a browser viewing notes
	ViewerCookie = "jan_viewer"
)

type ctxKey string

const adminKey ctxKey = "admin"

func withAdmin(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, adminKey, s)
}

// Admin returns the admin session attached by RequireAdmin
func Admin(ctx context.Context) *models.Session {
	s, _ := ctx.Value(adminKey).(*models.Session)
	return s
}

// Session makes sure the request carries a visitor id in the named cookie,
// issuing a fresh one when it is missing or malformed
func Session(name string, maxAge time.Duration, secure bool) func(http.Handler) http.Handler {
	key := ctxKey(name)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(name); err == nil && utils.IsValidVisitorID(c.Value) {
				id = c.Value
			} else {
				id = utils.GenerateVisitorID()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    id,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, id)))
		})
	}
}

// SessionID returns the visitor id Session stored under name
func SessionID(ctx context.Context, name string) string {
	id, _ := ctx.Value(ctxKey(name)).(string)
	return id
}
