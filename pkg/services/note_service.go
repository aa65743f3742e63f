package services

import (
	"context"

	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/models"
	"justanote/pkg/storage"
	"justanote/pkg/submission"
)

// PhotoCompressor turns an uploaded photo into an embeddable URL
type PhotoCompressor interface {
	Compress(data []byte) (string, error)
}

// NoteService validates, sanitizes and persists finished drafts
type NoteService struct {
	store  storage.Store
	photos PhotoCompressor
	retry  *errors.RetryHandler
	logger *zap.Logger
}

// NewNoteService creates a new note service. photos may be nil, in which
// case attached photos are dropped.
func NewNoteService(store storage.Store, photos PhotoCompressor, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{
		store:  store,
		photos: photos,
		retry:  errors.NewRetryHandler(3),
		logger: logger.Named("notes"),
	}
}

// Submit persists draft. Invalid drafts never reach storage. A photo that
// cannot be compressed is dropped rather than failing the submission.
func (s *NoteService) Submit(ctx context.Context, draft models.NoteDraft, photo []byte) (*models.PersistedNote, error) {
	if result := submission.Validate(draft); !result.IsValid {
		err := result.Err()
		s.logger.Debug("draft rejected", zap.Strings("fields", result.Fields()))
		return nil, err
	}

	record := submission.Sanitize(draft)
	if len(photo) > 0 && s.photos != nil {
		url, err := s.photos.Compress(photo)
		if err != nil {
			s.logger.Warn("photo dropped", zap.Int("bytes", len(photo)), zap.Error(err))
		} else {
			record.PhotoURL = url
		}
	}

	var note *models.PersistedNote
	err := s.retry.Execute(ctx, func() error {
		var err error
		note, err = s.store.CreateNote(ctx, record)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeStorage, "NOTE_CREATE_FAILED", "failed to create note").
				WithUserMessage("We couldn't save your note. Please try again").
				WithRetryable(true)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := errors.As(err); ok {
			appErr.Log()
		}
		return nil, err
	}

	s.logger.Info("note created",
		zap.String("note_id", note.ID),
		zap.String("delivery", string(note.DeliveryMethod)),
		zap.Bool("photo", note.PhotoURL != ""))
	return note, nil
}
