package auth

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"justanote/pkg/crypto"
	"justanote/pkg/models"
	"justanote/pkg/utils"
)

const SessionTimeout = 30 * time.Minute

// SessionCookie is the name of the admin session cookie
const SessionCookie = "admin_session"

// Manager handles admin authentication and session management
type Manager struct {
	sessions      map[string]*models.Session
	sessionsMutex sync.RWMutex
	allowedEmails []string
	passwordHash  string
	now           func() time.Time
}

// NewManager creates a manager that admits the listed emails with the
// password matching passwordHash
func NewManager(allowedEmails []string, passwordHash string) *Manager {
	emails := make([]string, 0, len(allowedEmails))
	for _, e := range allowedEmails {
		if e = normalizeEmail(e); e != "" {
			emails = append(emails, e)
		}
	}
	return &Manager{
		sessions:      make(map[string]*models.Session),
		allowedEmails: emails,
		passwordHash:  passwordHash,
		now:           time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Configured reports whether any admin can log in at all
func (m *Manager) Configured() bool {
	return len(m.allowedEmails) > 0 && m.passwordHash != ""
}

// IsAllowed reports whether email is on the allow-list
func (m *Manager) IsAllowed(email string) bool {
	return slices.Contains(m.allowedEmails, normalizeEmail(email))
}

// VerifyCredentials checks both the allow-list and the password
func (m *Manager) VerifyCredentials(email, password string) bool {
	if !m.Configured() {
		return false
	}
	// hash even for unknown emails so timing does not reveal the allow-list
	passwordOK := crypto.VerifyPassword(password, m.passwordHash)
	return m.IsAllowed(email) && passwordOK
}

// CreateSession creates a new session for an authenticated admin
func (m *Manager) CreateSession(email string) string {
	sessionID := utils.GenerateSessionID()

	m.sessionsMutex.Lock()
	m.sessions[sessionID] = &models.Session{
		Email:     normalizeEmail(email),
		ExpiresAt: m.now().Add(SessionTimeout),
	}
	m.sessionsMutex.Unlock()

	return sessionID
}

// GetSession retrieves and validates a session, extending it on use
func (m *Manager) GetSession(r *http.Request) *models.Session {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}

	m.sessionsMutex.Lock()
	defer m.sessionsMutex.Unlock()

	session, exists := m.sessions[cookie.Value]
	if !exists {
		return nil
	}
	if m.now().After(session.ExpiresAt) {
		delete(m.sessions, cookie.Value)
		return nil
	}

	session.ExpiresAt = m.now().Add(SessionTimeout)
	copied := *session
	return &copied
}

// DeleteSession removes a session (logout)
func (m *Manager) DeleteSession(sessionID string) {
	m.sessionsMutex.Lock()
	delete(m.sessions, sessionID)
	m.sessionsMutex.Unlock()
}

// IsAuthenticated checks if the request has a valid session
func (m *Manager) IsAuthenticated(r *http.Request) *models.Session {
	return m.GetSession(r)
}

// PruneExpired drops expired sessions and returns how many were removed
func (m *Manager) PruneExpired() int {
	m.sessionsMutex.Lock()
	defer m.sessionsMutex.Unlock()

	removed := 0
	now := m.now()
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
