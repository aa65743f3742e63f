package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"justanote/pkg/models"
	"justanote/pkg/performance"
	"justanote/pkg/utils"
)

// fileEventDebounce coalesces the burst of events a single write produces
const fileEventDebounce = 300 * time.Millisecond

// FileStore keeps one JSON file per note and an in-memory index that follows
// external changes to the directory
type FileStore struct {
	dataDir          string
	notes            map[string]*models.PersistedNote
	mutex            sync.RWMutex
	watcher          *fsnotify.Watcher
	debouncer        *performance.Debouncer
	fileModTimes     map[string]time.Time
	pendingDeletions map[string]bool // Track app-initiated deletions
	logger           *zap.Logger
	done             chan struct{}
	now              func() time.Time
}

// NewFileStore opens (creating if needed) a note directory and starts watching it
func NewFileStore(dataDir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &FileStore{
		dataDir:          dataDir,
		notes:            make(map[string]*models.PersistedNote),
		fileModTimes:     make(map[string]time.Time),
		pendingDeletions: make(map[string]bool),
		debouncer:        performance.NewDebouncer(fileEventDebounce),
		logger:           logger.Named("filestore"),
		now:              time.Now,
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	if err := store.syncFromDisk(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		store.logger.Warn("could not create file watcher", zap.Error(err))
		return store, nil
	}
	if err := watcher.Add(dataDir); err != nil {
		store.logger.Warn("could not watch data directory", zap.Error(err))
		watcher.Close()
		return store, nil
	}
	store.watcher = watcher
	store.done = make(chan struct{})
	go store.watch()

	return store, nil
}

// DataDir returns the data directory path
func (s *FileStore) DataDir() string {
	return s.dataDir
}

func (s *FileStore) watch() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !utils.IsValidNoteFilename(filepath.Base(event.Name)) {
				continue
			}
			path := event.Name
			s.debouncer.Debounce(path, func() { s.handleFileEvent(path) })

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// handleFileEvent reconciles the index with the current state of one file
func (s *FileStore) handleFileEvent(path string) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		s.handleFileRemove(path)
		return
	}
	if err != nil {
		s.logger.Warn("stat changed file", zap.String("path", path), zap.Error(err))
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// our own writes are already indexed
	if last, ok := s.fileModTimes[path]; ok && !info.ModTime().After(last) {
		return
	}

	note, err := readNoteFile(path)
	if err != nil {
		s.logger.Warn("ignoring unreadable note file", zap.String("path", path), zap.Error(err))
		return
	}
	s.fileModTimes[path] = info.ModTime()
	s.notes[note.ID] = note
	s.logger.Info("note updated from external file change", zap.String("note_id", note.ID))
}

func (s *FileStore) handleFileRemove(path string) {
	id := noteIDFromPath(path)

	s.mutex.Lock()
	wasAppDeleted := s.pendingDeletions[id]
	delete(s.pendingDeletions, id)
	_, indexed := s.notes[id]
	delete(s.notes, id)
	delete(s.fileModTimes, path)
	s.mutex.Unlock()

	if !wasAppDeleted && indexed {
		s.logger.Info("note removed by external file deletion", zap.String("note_id", id))
	}
}

func noteIDFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func readNoteFile(path string) (*models.PersistedNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var note models.PersistedNote
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, err
	}
	if note.ID != noteIDFromPath(path) {
		return nil, fmt.Errorf("note id %q does not match file name", note.ID)
	}
	return &note, nil
}

// syncFromDisk rebuilds the index. Files that cannot be parsed are moved
// to the corrupted/ subdirectory.
func (s *FileStore) syncFromDisk() error {
	files, err := filepath.Glob(filepath.Join(s.dataDir, "*.json"))
	if err != nil {
		return fmt.Errorf("read data directory: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	notes := make(map[string]*models.PersistedNote, len(files))
	for _, file := range files {
		if !utils.IsValidNoteFilename(filepath.Base(file)) {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		note, err := readNoteFile(file)
		if err != nil {
			s.logger.Warn("moving corrupted note file", zap.String("path", file), zap.Error(err))
			if err := s.moveToCorrupted(file); err != nil {
				s.logger.Error("move corrupted note file", zap.String("path", file), zap.Error(err))
			}
			continue
		}
		notes[note.ID] = note
		s.fileModTimes[file] = info.ModTime()
	}
	s.notes = notes
	return nil
}

func (s *FileStore) moveToCorrupted(path string) error {
	corruptedDir := filepath.Join(s.dataDir, "corrupted")
	if err := os.MkdirAll(corruptedDir, 0755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(corruptedDir, filepath.Base(path)))
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dataDir, id+".json")
}

// saveLocked writes a note to disk; mutex must be held
func (s *FileStore) saveLocked(note *models.PersistedNote) error {
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return err
	}
	filename := s.path(note.ID)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}
	// Update our modification time tracking to prevent processing our own write
	if info, err := os.Stat(filename); err == nil {
		s.fileModTimes[filename] = info.ModTime()
	}
	s.notes[note.ID] = note
	return nil
}

// CreateNote stores a new note
func (s *FileStore) CreateNote(ctx context.Context, rec models.NoteRecord) (*models.PersistedNote, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id, err := newNoteID(func(id string) (bool, error) {
		if _, ok := s.notes[id]; ok {
			return true, nil
		}
		_, err := os.Stat(s.path(id))
		return err == nil, nil
	})
	if err != nil {
		return nil, err
	}

	note := models.NewPersistedNote(id, rec, s.now())
	if err := s.saveLocked(note); err != nil {
		return nil, fmt.Errorf("write note %s: %w", id, err)
	}
	return note.Clone(), nil
}

// GetNote retrieves a note by ID
func (s *FileStore) GetNote(ctx context.Context, id string) (*models.PersistedNote, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	note, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return note.Clone(), nil
}

// update applies fn to a copy of the note and persists it when fn reports a change
func (s *FileStore) update(id string, fn func(*models.PersistedNote) bool) (*models.PersistedNote, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	note, ok := s.notes[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	updated := note.Clone()
	if !fn(updated) {
		return updated, false, nil
	}
	if err := s.saveLocked(updated); err != nil {
		return nil, false, fmt.Errorf("write note %s: %w", id, err)
	}
	return updated.Clone(), true, nil
}

// MarkDelivered moves a pending note to delivered
func (s *FileStore) MarkDelivered(ctx context.Context, id string, at time.Time) (*models.PersistedNote, bool, error) {
	return s.update(id, func(n *models.PersistedNote) bool { return n.MarkDelivered(at) })
}

// RecordView counts one view
func (s *FileStore) RecordView(ctx context.Context, id string, at time.Time) (*models.PersistedNote, error) {
	note, _, err := s.update(id, func(n *models.PersistedNote) bool {
		n.RecordView(at)
		return true
	})
	return note, err
}

func (s *FileStore) list(keep func(*models.PersistedNote) bool) []*models.PersistedNote {
	s.mutex.RLock()
	notes := make([]*models.PersistedNote, 0, len(s.notes))
	for _, note := range s.notes {
		if keep(note) {
			notes = append(notes, note.Clone())
		}
	}
	s.mutex.RUnlock()

	sortNewestFirst(notes)
	return notes
}

// ListDeliveryRequests returns admin-delivery notes, newest first
func (s *FileStore) ListDeliveryRequests(ctx context.Context, filter StatusFilter) ([]*models.PersistedNote, error) {
	return s.list(func(n *models.PersistedNote) bool {
		return n.DeliveryMethod == models.DeliveryAdmin && filter.match(n)
	}), nil
}

// ListNotes returns every note, newest first
func (s *FileStore) ListNotes(ctx context.Context) ([]*models.PersistedNote, error) {
	return s.list(func(*models.PersistedNote) bool { return true }), nil
}

// DeleteNote deletes a note by ID
func (s *FileStore) DeleteNote(ctx context.Context, id string) error {
	filename := s.path(id)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.notes[id]; !ok {
		return ErrNotFound
	}
	// Mark this deletion as app-initiated
	s.pendingDeletions[id] = true
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		delete(s.pendingDeletions, id)
		return fmt.Errorf("remove note %s: %w", id, err)
	}
	delete(s.notes, id)
	delete(s.fileModTimes, filename)
	return nil
}

// Stats summarises all notes
func (s *FileStore) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	dayStart := startOfDay(now)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var stats models.Stats
	for _, note := range s.notes {
		stats.Add(note, dayStart)
	}
	return stats, nil
}

// Refresh forces a full resync from disk
func (s *FileStore) Refresh() error {
	return s.syncFromDisk()
}

// Close stops the file watcher
func (s *FileStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	s.debouncer.Clear()
	return err
}
