package types

import (
	"time"

	"github.com/samber/lo"

	"justanote/pkg/models"
)

// NoteView is the public shape of a note. It never carries delivery
// contacts, and hides the sender name of anonymous notes.
type NoteView struct {
	ID            string           `json:"id"`
	RecipientName string           `json:"recipientName"`
	Vibe          *models.VibeInfo `json:"vibe,omitempty"`
	Song          *models.SongRef  `json:"song,omitempty"`
	Message       string           `json:"message"`
	PhotoURL      string           `json:"photoUrl,omitempty"`
	IsAnonymous   bool             `json:"isAnonymous"`
	SenderName    string           `json:"senderName,omitempty"`
	CreatedAt     string           `json:"createdAt"`
	ViewCount     int              `json:"viewCount"`
}

// ConvertToNoteView converts a stored note to its public view
func ConvertToNoteView(note *models.PersistedNote) NoteView {
	if note == nil {
		return NoteView{}
	}
	view := NoteView{
		ID:            note.ID,
		RecipientName: note.RecipientName,
		Song:          note.Song,
		Message:       note.Message,
		PhotoURL:      note.PhotoURL,
		IsAnonymous:   note.IsAnonymous,
		CreatedAt:     note.CreatedAt.Format(time.RFC3339),
		ViewCount:     note.ViewCount,
	}
	if info, ok := note.Vibe.Info(); ok {
		view.Vibe = &info
	}
	if !note.IsAnonymous {
		view.SenderName = note.SenderName
	}
	return view
}

// QueueItem is one entry of the admin delivery queue
type QueueItem struct {
	ID                 string `json:"id"`
	RecipientName      string `json:"recipientName"`
	RecipientInstagram string `json:"recipientInstagram"`
	SenderEmail        string `json:"senderEmail"`
	Status             string `json:"status"`
	Message            string `json:"message"`
	Link               string `json:"link"`
	ViewCount          int    `json:"viewCount"`
	CreatedAt          string `json:"createdAt"`
	DeliveredAt        string `json:"deliveredAt,omitempty"`
}

// ConvertToQueueItem converts a stored note to a queue entry; link is the
// share link of the note
func ConvertToQueueItem(note *models.PersistedNote, link string) QueueItem {
	item := QueueItem{
		ID:                 note.ID,
		RecipientName:      note.RecipientName,
		RecipientInstagram: note.RecipientInstagram,
		SenderEmail:        note.SenderEmail,
		Status:             string(note.Status),
		Message:            note.Message,
		Link:               link,
		ViewCount:          note.ViewCount,
		CreatedAt:          note.CreatedAt.Format(time.RFC3339),
	}
	if note.DeliveredAt != nil {
		item.DeliveredAt = note.DeliveredAt.Format(time.RFC3339)
	}
	return item
}

// ConvertToQueueItems converts notes using linkFor to build share links
func ConvertToQueueItems(notes []*models.PersistedNote, linkFor func(id string) string) []QueueItem {
	return lo.Map(notes, func(n *models.PersistedNote, _ int) QueueItem {
		return ConvertToQueueItem(n, linkFor(n.ID))
	})
}

// WizardView is the state of a creation session as shown to its owner
type WizardView struct {
	Step            string            `json:"step"`
	Redirected      bool              `json:"redirected"`
	Landing         bool              `json:"landing"`
	Draft           models.NoteDraft  `json:"draft"`
	HasPhoto        bool              `json:"hasPhoto"`
	SubmittedNoteID string            `json:"submittedNoteId,omitempty"`
	Steps           []string          `json:"steps"`
	Vibes           []models.VibeInfo `json:"vibes"`
}

// SubmitResponse is returned after a note is created
type SubmitResponse struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// LandingView tells the landing page whether this session just sent a note
type LandingView struct {
	SubmittedNoteID string `json:"submittedNoteId,omitempty"`
	Link            string `json:"link,omitempty"`
}
