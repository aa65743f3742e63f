package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"justanote/pkg/auth"
	"justanote/pkg/services"
)

// AuthHandlers contains authentication-related handlers
type AuthHandlers struct {
	auth   *services.AuthService
	secure bool
	logger *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *services.AuthService, secureCookies bool, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{auth: authService, secure: secureCookies, logger: logger.Named("auth")}
}

// LoginHandler accepts a JSON body or a form post
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if r.Header.Get("Content-Type") == "application/json" {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
	} else {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	sessionID, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// LogoutHandler handles logout requests
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		h.auth.Logout(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
