package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:  endpoint,
		ServiceID: "service_1",
		PublicKey: "public_1",
		Templates: map[Event]string{
			EventDelivered: "tpl_delivered",
			EventViewed:    "tpl_viewed",
		},
	}
}

func fastRetries(c *EmailJS) *EmailJS {
	c.retry.Backoff = time.Millisecond
	return c
}

func TestNotifySendsEmailJSPayload(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewEmailJS(testConfig(srv.URL), nil)
	ok := c.Notify(context.Background(), EventDelivered, "sender@example.com", map[string]string{
		"recipient_name": "Jane",
		"note_link":      "https://justanote.example/n/ABCDEFGH",
	})
	require.True(t, ok)

	assert.Equal(t, "service_1", got.ServiceID)
	assert.Equal(t, "tpl_delivered", got.TemplateID)
	assert.Equal(t, "public_1", got.UserID)
	assert.Equal(t, "sender@example.com", got.TemplateParams["to_email"])
	assert.Equal(t, "Jane", got.TemplateParams["recipient_name"])
}

func TestNotifyUnconfiguredIsNoop(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	unconfigured := NewEmailJS(Config{Endpoint: srv.URL}, nil)
	assert.False(t, unconfigured.Configured())
	assert.True(t, unconfigured.Notify(context.Background(), EventViewed, "a@example.com", nil))

	noTemplate := testConfig(srv.URL)
	delete(noTemplate.Templates, EventViewed)
	assert.True(t, NewEmailJS(noTemplate, nil).Notify(context.Background(), EventViewed, "a@example.com", nil))

	assert.True(t, NewEmailJS(testConfig(srv.URL), nil).Notify(context.Background(), EventViewed, "", nil))
	assert.Zero(t, hits.Load())
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := fastRetries(NewEmailJS(testConfig(srv.URL), nil))
	assert.True(t, c.Notify(context.Background(), EventViewed, "a@example.com", nil))
	assert.Equal(t, int32(3), hits.Load())
}

func TestNotifyDoesNotRetryRejections(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "The template ID is invalid", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := fastRetries(NewEmailJS(testConfig(srv.URL), nil))
	assert.False(t, c.Notify(context.Background(), EventViewed, "a@example.com", nil))
	assert.Equal(t, int32(1), hits.Load())
}

func TestNotifyGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastRetries(NewEmailJS(testConfig(srv.URL), nil))
	assert.False(t, c.Notify(context.Background(), EventDelivered, "a@example.com", nil))
	assert.Equal(t, int32(3), hits.Load())
}
