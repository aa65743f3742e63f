package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/models"
	"justanote/pkg/notify"
	"justanote/pkg/storage"
	"justanote/pkg/types"
)

// AdminService backs the operator dashboard
type AdminService struct {
	store    storage.Store
	notifier notify.Notifier
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminService creates an admin service
func NewAdminService(store storage.Store, notifier notify.Notifier, baseURL string, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		store:    store,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   logger.Named("admin"),
		now:      time.Now,
	}
}

func (s *AdminService) storageError(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errors.ErrNoteNotFound.WithContext("noteId", id)
	}
	appErr := errors.ErrStorageUnavailable.WithCause(err)
	if id != "" {
		appErr = appErr.WithContext("noteId", id)
	}
	appErr.Log()
	return appErr
}

// Link returns the share link of a note
func (s *AdminService) Link(id string) string {
	return ShareLink(s.baseURL, id)
}

// Queue lists admin-delivery notes, newest first
func (s *AdminService) Queue(ctx context.Context, filter storage.StatusFilter) ([]types.QueueItem, error) {
	notes, err := s.store.ListDeliveryRequests(ctx, filter)
	if err != nil {
		return nil, s.storageError(err, "")
	}
	return types.ConvertToQueueItems(notes, s.Link), nil
}

// MarkDelivered marks a note delivered and tells the sender. Calling it on a
// delivered note changes nothing and sends nothing. Email failures are logged,
// never returned.
func (s *AdminService) MarkDelivered(ctx context.Context, id string) (*models.PersistedNote, bool, error) {
	if result := errors.NewValidator().ValidateNoteID(id); !result.IsValid {
		return nil, false, errors.ErrNoteNotFound.WithContext("noteId", id)
	}

	note, changed, err := s.store.MarkDelivered(ctx, id, s.now())
	if err != nil {
		return nil, false, s.storageError(err, id)
	}
	if !changed {
		return note, false, nil
	}

	s.logger.Info("note delivered", zap.String("note_id", id))
	if note.SenderEmail != "" && s.notifier != nil {
		if !s.notifier.Notify(ctx, notify.EventDelivered, note.SenderEmail, deliveredParams(note, s.Link(id))) {
			s.logger.Warn("delivered notification failed", zap.String("note_id", id))
		}
	}
	return note, true, nil
}

// Delete removes a note
func (s *AdminService) Delete(ctx context.Context, id string) error {
	if result := errors.NewValidator().ValidateNoteID(id); !result.IsValid {
		return errors.ErrNoteNotFound.WithContext("noteId", id)
	}
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return s.storageError(err, id)
	}
	s.logger.Info("note deleted", zap.String("note_id", id))
	return nil
}

// Stats summarises the note collection
func (s *AdminService) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx, s.now())
	if err != nil {
		return models.Stats{}, s.storageError(err, "")
	}
	return stats, nil
}

// Notes lists every note, newest first
func (s *AdminService) Notes(ctx context.Context) ([]types.QueueItem, error) {
	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		return nil, s.storageError(err, "")
	}
	return types.ConvertToQueueItems(notes, s.Link), nil
}
