package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"justanote/pkg/models"
)

type fakeAuth struct{ session *models.Session }

func (f fakeAuth) IsAuthenticated(r *http.Request) *models.Session { return f.session }

func TestRequireAdmin(t *testing.T) {
	var seen *models.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Admin(r.Context())
	})

	rec := httptest.NewRecorder()
	RequireAdmin(fakeAuth{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/queue", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_AUTHENTICATED")
	assert.Nil(t, seen)

	session := &models.Session{Email: "admin@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	rec = httptest.NewRecorder()
	RequireAdmin(fakeAuth{session: session})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session, seen)
}

func TestSessionIssuesAndKeepsVisitorID(t *testing.T) {
	var got string
	h := Session(WizardCookie, time.Hour, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionID(r.Context(), WizardCookie)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, WizardCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, got)

	first := got
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, first, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: WizardCookie, Value: "forged"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "forged", got)
	assert.Len(t, rec.Result().Cookies(), 1)

	assert.Empty(t, SessionID(req.Context(), ViewerCookie))
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/brew", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
}
