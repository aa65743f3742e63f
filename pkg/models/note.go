package models

import (
	"encoding/json"
	"time"
)

// Vibe is a fixed-choice relationship tag attached to a note
type Vibe string

// VibeInfo describes a recognised vibe
type VibeInfo struct {
	ID    Vibe   `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// Vibes lists the recognised vibes in display order
var Vibes = []VibeInfo{
	{ID: "1", Label: "Crush", Emoji: "😍"},
	{ID: "2", Label: "Partner", Emoji: "❤️"},
	{ID: "3", Label: "Friend", Emoji: "✌️"},
	{ID: "4", Label: "Best Friend", Emoji: "👯"},
	{ID: "5", Label: "Parents", Emoji: "🏡"},
	{ID: "6", Label: "Relative", Emoji: "🌟"},
}

// Valid reports whether v is one of the recognised vibes
func (v Vibe) Valid() bool {
	_, ok := v.Info()
	return ok
}

// Info returns the display info for v
func (v Vibe) Info() (VibeInfo, bool) {
	for _, info := range Vibes {
		if info.ID == v {
			return info, true
		}
	}
	return VibeInfo{}, false
}

// SongSource identifies where a song reference came from
type SongSource string

const (
	SongITunes  SongSource = "itunes"
	SongYouTube SongSource = "youtube"
	SongSpotify SongSource = "spotify"
)

// Valid reports whether s is a source the service can play
func (s SongSource) Valid() bool {
	switch s {
	case SongITunes, SongYouTube, SongSpotify:
		return true
	}
	return false
}

// SongRef is a reference to a selected song clip
type SongRef struct {
	Type       SongSource `json:"type"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	AlbumCover string     `json:"albumCover,omitempty"`
	Preview    string     `json:"preview,omitempty"`
	URL        string     `json:"url,omitempty"`
	TrackID    string     `json:"trackId,omitempty"`
	VideoID    string     `json:"videoId,omitempty"`
	StartTime  int        `json:"startTime,omitempty"`
	EndTime    int        `json:"endTime,omitempty"`
}

// DeliveryMethod is the wire name of a delivery variant
type DeliveryMethod string

const (
	DeliverySelf  DeliveryMethod = "self"
	DeliveryAdmin DeliveryMethod = "admin"
)

// Delivery is either a SelfDelivery or an AdminDelivery.
type Delivery interface {
	Method() DeliveryMethod
	delivery()
}

// SelfDelivery means the sender shares the link themselves.
// SenderEmail is optional and only receives the "viewed" notice.
type SelfDelivery struct {
	SenderEmail string
}

// AdminDelivery routes the note into the manual delivery queue
type AdminDelivery struct {
	RecipientInstagram string
	SenderEmail        string
}

func (SelfDelivery) Method() DeliveryMethod  { return DeliverySelf }
func (AdminDelivery) Method() DeliveryMethod { return DeliveryAdmin }
func (SelfDelivery) delivery()               {}
func (AdminDelivery) delivery()              {}

// NoteDraft is the in-progress note owned by one creation session
type NoteDraft struct {
	RecipientName string
	Vibe          Vibe
	Song          *SongRef
	Message       string
	IsAnonymous   bool
	SenderName    string
	Delivery      Delivery
}

// NewDraft returns an empty draft with the default anonymity
func NewDraft() NoteDraft {
	return NoteDraft{IsAnonymous: true}
}

// draftWire is the flat JSON shape of a draft
type draftWire struct {
	RecipientName      string         `json:"recipientName"`
	Vibe               Vibe           `json:"vibe"`
	Song               *SongRef       `json:"song"`
	Message            string         `json:"message"`
	IsAnonymous        bool           `json:"isAnonymous"`
	SenderName         string         `json:"senderName"`
	DeliveryMethod     DeliveryMethod `json:"deliveryMethod"`
	RecipientInstagram string         `json:"recipientInstagram"`
	SenderEmail        string         `json:"senderEmail"`
}

// MarshalJSON flattens the delivery variant
func (d NoteDraft) MarshalJSON() ([]byte, error) {
	w := draftWire{
		RecipientName: d.RecipientName,
		Vibe:          d.Vibe,
		Song:          d.Song,
		Message:       d.Message,
		IsAnonymous:   d.IsAnonymous,
		SenderName:    d.SenderName,
	}
	switch v := d.Delivery.(type) {
	case SelfDelivery:
		w.DeliveryMethod = DeliverySelf
		w.SenderEmail = v.SenderEmail
	case AdminDelivery:
		w.DeliveryMethod = DeliveryAdmin
		w.RecipientInstagram = v.RecipientInstagram
		w.SenderEmail = v.SenderEmail
	}
	return json.Marshal(w)
}

// UnmarshalJSON builds the delivery variant from the flat shape.
// An unknown method leaves Delivery nil.
func (d *NoteDraft) UnmarshalJSON(data []byte) error {
	w := draftWire{IsAnonymous: true}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = NoteDraft{
		RecipientName: w.RecipientName,
		Vibe:          w.Vibe,
		Song:          w.Song,
		Message:       w.Message,
		IsAnonymous:   w.IsAnonymous,
		SenderName:    w.SenderName,
		Delivery:      NewDelivery(w.DeliveryMethod, w.RecipientInstagram, w.SenderEmail),
	}
	return nil
}

// NewDelivery builds the variant named by method, or nil for an unknown method
func NewDelivery(method DeliveryMethod, instagram, email string) Delivery {
	switch method {
	case DeliverySelf:
		return SelfDelivery{SenderEmail: email}
	case DeliveryAdmin:
		return AdminDelivery{RecipientInstagram: instagram, SenderEmail: email}
	}
	return nil
}

// Status is the delivery status of a persisted note
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// NoteRecord is the sanitized, storage-shaped content of a note
type NoteRecord struct {
	RecipientName      string         `json:"recipientName"`
	Vibe               Vibe           `json:"vibe,omitempty"`
	Song               *SongRef       `json:"song,omitempty"`
	Message            string         `json:"message"`
	PhotoURL           string         `json:"photoUrl,omitempty"`
	IsAnonymous        bool           `json:"isAnonymous"`
	SenderName         string         `json:"senderName,omitempty"`
	DeliveryMethod     DeliveryMethod `json:"deliveryMethod"`
	RecipientInstagram string         `json:"recipientInstagram,omitempty"`
	SenderEmail        string         `json:"senderEmail,omitempty"`
}

// PersistedNote is a stored note
type PersistedNote struct {
	ID string `json:"id"`
	NoteRecord
	CreatedAt     time.Time  `json:"createdAt"`
	Status        Status     `json:"status"`
	ViewCount     int        `json:"viewCount"`
	DeliveredAt   *time.Time `json:"deliveredAt"`
	FirstViewedAt *time.Time `json:"firstViewedAt,omitempty"`
	LastViewedAt  *time.Time `json:"lastViewedAt,omitempty"`
}

// NewPersistedNote applies the initial status rules for a freshly created note
func NewPersistedNote(id string, rec NoteRecord, now time.Time) *PersistedNote {
	n := &PersistedNote{
		ID:         id,
		NoteRecord: rec,
		CreatedAt:  now,
		Status:     StatusPending,
	}
	if rec.DeliveryMethod == DeliverySelf {
		delivered := now
		n.Status = StatusDelivered
		n.DeliveredAt = &delivered
	}
	return n
}

// MarkDelivered moves the note to delivered. It reports false if it already was.
func (n *PersistedNote) MarkDelivered(at time.Time) bool {
	if n.Status == StatusDelivered {
		return false
	}
	n.Status = StatusDelivered
	n.DeliveredAt = &at
	return true
}

// RecordView increments the view count and view timestamps
func (n *PersistedNote) RecordView(at time.Time) {
	n.ViewCount++
	if n.FirstViewedAt == nil {
		first := at
		n.FirstViewedAt = &first
	}
	n.LastViewedAt = &at
}

// Clone returns a deep copy
func (n *PersistedNote) Clone() *PersistedNote {
	if n == nil {
		return nil
	}
	c := *n
	if n.Song != nil {
		song := *n.Song
		c.Song = &song
	}
	c.DeliveredAt = cloneTime(n.DeliveredAt)
	c.FirstViewedAt = cloneTime(n.FirstViewedAt)
	c.LastViewedAt = cloneTime(n.LastViewedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Stats summarises the note collection for the admin dashboard
type Stats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Delivered    int `json:"delivered"`
	CreatedToday int `json:"createdToday"`
	Self         int `json:"self"`
	Admin        int `json:"admin"`
	TotalViews   int `json:"totalViews"`
}

// Add accounts one note into the stats
func (s *Stats) Add(n *PersistedNote, dayStart time.Time) {
	s.Total++
	switch n.Status {
	case StatusPending:
		s.Pending++
	case StatusDelivered:
		s.Delivered++
	}
	switch n.DeliveryMethod {
	case DeliverySelf:
		s.Self++
	case DeliveryAdmin:
		s.Admin++
	}
	if !n.CreatedAt.Before(dayStart) {
		s.CreatedToday++
	}
	s.TotalViews += n.ViewCount
}
