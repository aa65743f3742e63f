package wizard

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"justanote/pkg/models"
)

// State is everything the flow keeps for one creation session
type State struct {
	Draft models.NoteDraft
	// Photo is transient: it is handed to submission and never stored with the draft
	Photo []byte
	// SubmittedNoteID marks the session as finished
	SubmittedNoteID string
}

// NewState returns the state of a fresh session
func NewState() State {
	return State{Draft: models.NewDraft()}
}

// Submitted reports whether the session already produced a note
func (s State) Submitted() bool {
	return s.SubmittedNoteID != ""
}

// SessionStore holds per-session wizard state with an explicit lifecycle
type SessionStore interface {
	Load(sessionID string) (State, bool)
	Save(sessionID string, state State)
	Clear(sessionID string)
}

// LRUStore is an in-memory SessionStore bounded in size and idle lifetime
type LRUStore struct {
	cache *expirable.LRU[string, State]
}

// NewLRUStore creates a store keeping at most size sessions for ttl each
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	return &LRUStore{cache: expirable.NewLRU[string, State](size, nil, ttl)}
}

// Load returns the saved state of a session
func (s *LRUStore) Load(sessionID string) (State, bool) {
	return s.cache.Get(sessionID)
}

// Save replaces the state of a session
func (s *LRUStore) Save(sessionID string, state State) {
	s.cache.Add(sessionID, state)
}

// Clear forgets a session
func (s *LRUStore) Clear(sessionID string) {
	s.cache.Remove(sessionID)
}

// Len returns the number of live sessions
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
