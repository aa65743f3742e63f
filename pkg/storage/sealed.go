package storage

import (
	"context"
	"fmt"
	"time"

	"justanote/pkg/crypto"
	"justanote/pkg/models"
)

// SealedStore encrypts the delivery contact fields (sender email and
// recipient instagram) before they reach the wrapped store and decrypts them
// on the way out
type SealedStore struct {
	inner  Store
	sealer *crypto.Sealer
}

// NewSealedStore wraps inner
func NewSealedStore(inner Store, sealer *crypto.Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

func (s *SealedStore) seal(rec models.NoteRecord) (models.NoteRecord, error) {
	var err error
	if rec.SenderEmail, err = s.sealer.Seal(rec.SenderEmail); err != nil {
		return rec, err
	}
	if rec.RecipientInstagram, err = s.sealer.Seal(rec.RecipientInstagram); err != nil {
		return rec, err
	}
	return rec, nil
}

func (s *SealedStore) open(n *models.PersistedNote) (*models.PersistedNote, error) {
	if n == nil {
		return nil, nil
	}
	var err error
	if n.SenderEmail, err = s.sealer.Open(n.SenderEmail); err != nil {
		return nil, fmt.Errorf("open sender email of %s: %w", n.ID, err)
	}
	if n.RecipientInstagram, err = s.sealer.Open(n.RecipientInstagram); err != nil {
		return nil, fmt.Errorf("open recipient instagram of %s: %w", n.ID, err)
	}
	return n, nil
}

func (s *SealedStore) openAll(notes []*models.PersistedNote, err error) ([]*models.PersistedNote, error) {
	if err != nil {
		return nil, err
	}
	for i, n := range notes {
		if notes[i], err = s.open(n); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

func (s *SealedStore) CreateNote(ctx context.Context, rec models.NoteRecord) (*models.PersistedNote, error) {
	sealed, err := s.seal(rec)
	if err != nil {
		return nil, err
	}
	note, err := s.inner.CreateNote(ctx, sealed)
	if err != nil {
		return nil, err
	}
	return s.open(note)
}

func (s *SealedStore) GetNote(ctx context.Context, id string) (*models.PersistedNote, error) {
	note, err := s.inner.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(note)
}

func (s *SealedStore) MarkDelivered(ctx context.Context, id string, at time.Time) (*models.PersistedNote, bool, error) {
	note, changed, err := s.inner.MarkDelivered(ctx, id, at)
	if err != nil {
		return nil, false, err
	}
	note, err = s.open(note)
	return note, changed, err
}

func (s *SealedStore) RecordView(ctx context.Context, id string, at time.Time) (*models.PersistedNote, error) {
	note, err := s.inner.RecordView(ctx, id, at)
	if err != nil {
		return nil, err
	}
	return s.open(note)
}

func (s *SealedStore) ListDeliveryRequests(ctx context.Context, filter StatusFilter) ([]*models.PersistedNote, error) {
	return s.openAll(s.inner.ListDeliveryRequests(ctx, filter))
}

func (s *SealedStore) ListNotes(ctx context.Context) ([]*models.PersistedNote, error) {
	return s.openAll(s.inner.ListNotes(ctx))
}

func (s *SealedStore) DeleteNote(ctx context.Context, id string) error {
	return s.inner.DeleteNote(ctx, id)
}

func (s *SealedStore) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	return s.inner.Stats(ctx, now)
}

func (s *SealedStore) Close() error {
	return s.inner.Close()
}
