package services

import (
	"strings"

	"go.uber.org/zap"

	"justanote/pkg/auth"
	"justanote/pkg/errors"
)

// AuthService handles admin login and logout
type AuthService struct {
	authManager *auth.Manager
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(authManager *auth.Manager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{authManager: authManager, logger: logger.Named("auth")}
}

// Login checks the credentials and opens a session
func (s *AuthService) Login(email, password string) (string, error) {
	result := errors.NewValidationResult()
	if strings.TrimSpace(email) == "" {
		result.AddFieldError("email", "EMAIL_REQUIRED", "Please enter your email")
	}
	if password == "" {
		result.AddFieldError("password", "PASSWORD_EMPTY", "Please enter your password")
	}
	if !result.IsValid {
		return "", result.Err()
	}

	if !s.authManager.Configured() {
		err := errors.ErrNotAuthenticated.
			WithUserMessage("Admin login is not configured").
			WithContext("reason", "no admin emails or password hash")
		err.Log()
		return "", err
	}

	if !s.authManager.VerifyCredentials(email, password) {
		// Log authentication failure for security monitoring
		err := errors.ErrInvalidCredentials.WithContext("email", email)
		err.Log()
		return "", err
	}

	s.logger.Info("admin logged in", zap.String("email", strings.ToLower(strings.TrimSpace(email))))
	return s.authManager.CreateSession(email), nil
}

// Logout closes a session
func (s *AuthService) Logout(sessionID string) {
	s.authManager.DeleteSession(sessionID)
}
