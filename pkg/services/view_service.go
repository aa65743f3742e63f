package services

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/models"
	"justanote/pkg/notify"
	"justanote/pkg/performance"
	"justanote/pkg/storage"
	"justanote/pkg/types"
)

const (
	viewerCacheSize = 50000
	viewerCacheTTL  = 24 * time.Hour
	viewBatchSize   = 50
	viewBatchWait   = 500 * time.Millisecond
	viewWriteTime   = 10 * time.Second
)

type viewEvent struct {
	noteID string
	at     time.Time
}

// ViewService serves public note views and records them
type ViewService struct {
	store    storage.Store
	notifier notify.Notifier
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time

	seenMu sync.Mutex
	seen   *expirable.LRU[string, struct{}]
	views  *performance.BatchProcessor[viewEvent]
}

// NewViewService creates a view service. Close flushes pending views.
func NewViewService(store storage.Store, notifier notify.Notifier, baseURL string, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ViewService{
		store:    store,
		notifier: notifier,
		baseURL:  baseURL,
		logger:   logger.Named("views"),
		now:      time.Now,
		seen:     expirable.NewLRU[string, struct{}](viewerCacheSize, nil, viewerCacheTTL),
	}
	s.views = performance.NewBatchProcessor(viewBatchSize, viewBatchWait, s.recordViews)
	return s
}

// View returns the public view of a note. The first request of each viewer
// session counts as a view.
func (s *ViewService) View(ctx context.Context, id, viewerID string) (*types.NoteView, error) {
	validator := errors.NewValidator()
	if result := validator.ValidateNoteID(id); !result.IsValid {
		return nil, errors.ErrNoteNotFound.WithContext("noteId", id)
	}

	note, err := s.store.GetNote(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.ErrNoteNotFound.WithContext("noteId", id)
	}
	if err != nil {
		appErr := errors.ErrStorageUnavailable.WithCause(err).WithContext("noteId", id)
		appErr.Log()
		return nil, appErr
	}

	if viewerID != "" && s.firstVisit(id, viewerID) {
		s.views.Add(viewEvent{noteID: id, at: s.now()})
	}

	view := types.ConvertToNoteView(note)
	return &view, nil
}

func (s *ViewService) firstVisit(noteID, viewerID string) bool {
	key := noteID + "|" + viewerID
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	if s.seen.Contains(key) {
		return false
	}
	s.seen.Add(key, struct{}{})
	return true
}

// recordViews persists a batch of views; failures are logged and dropped
func (s *ViewService) recordViews(events []viewEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), viewWriteTime)
	defer cancel()

	for _, ev := range events {
		note, err := s.store.RecordView(ctx, ev.noteID, ev.at)
		if err != nil {
			s.logger.Warn("view not recorded", zap.String("note_id", ev.noteID), zap.Error(err))
			continue
		}
		if note.ViewCount == 1 {
			s.notifyFirstView(ctx, note)
		}
	}
}

func (s *ViewService) notifyFirstView(ctx context.Context, note *models.PersistedNote) {
	if note.SenderEmail == "" || s.notifier == nil {
		return
	}
	if !s.notifier.Notify(ctx, notify.EventViewed, note.SenderEmail, viewedParams(note, ShareLink(s.baseURL, note.ID))) {
		s.logger.Warn("viewed notification failed", zap.String("note_id", note.ID))
	}
}

// Flush records pending views now
func (s *ViewService) Flush() {
	s.views.Flush()
}

// Close records pending views and waits for them
func (s *ViewService) Close() {
	s.views.Close()
}
