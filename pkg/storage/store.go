package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"justanote/pkg/models"
	"justanote/pkg/utils"
)

// ErrNotFound is returned when no note has the requested ID
var ErrNotFound = stderrors.New("note not found")

// StatusFilter narrows the delivery queue; empty means all
type StatusFilter string

const (
	FilterAll       StatusFilter = ""
	FilterPending   StatusFilter = StatusFilter(models.StatusPending)
	FilterDelivered StatusFilter = StatusFilter(models.StatusDelivered)
)

// ParseStatusFilter maps a query value to a filter
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(s) {
	case FilterAll, FilterPending, FilterDelivered:
		return StatusFilter(s), nil
	case "all":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

func (f StatusFilter) match(n *models.PersistedNote) bool {
	return f == FilterAll || string(n.Status) == string(f)
}

// Store persists notes
type Store interface {
	// CreateNote assigns an ID and the initial status and stores the note
	CreateNote(ctx context.Context, rec models.NoteRecord) (*models.PersistedNote, error)
	GetNote(ctx context.Context, id string) (*models.PersistedNote, error)
	// MarkDelivered reports whether the note changed; delivered notes stay untouched
	MarkDelivered(ctx context.Context, id string, at time.Time) (*models.PersistedNote, bool, error)
	RecordView(ctx context.Context, id string, at time.Time) (*models.PersistedNote, error)
	// ListDeliveryRequests returns admin-delivery notes, newest first
	ListDeliveryRequests(ctx context.Context, filter StatusFilter) ([]*models.PersistedNote, error)
	// ListNotes returns every note, newest first
	ListNotes(ctx context.Context) ([]*models.PersistedNote, error)
	DeleteNote(ctx context.Context, id string) error
	Stats(ctx context.Context, now time.Time) (models.Stats, error)
	Close() error
}

const maxIDAttempts = 5

// newNoteID draws IDs until exists reports a free one
func newNoteID(exists func(id string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := utils.GenerateNoteID()
		if err != nil {
			return "", fmt.Errorf("generate note id: %w", err)
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free note id after %d attempts", maxIDAttempts)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sortNewestFirst(notes []*models.PersistedNote) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}
