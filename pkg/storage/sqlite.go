package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"justanote/pkg/models"
)

// Timestamps are unix nanoseconds so ordering and day ranges compare numerically.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    recipient_name TEXT NOT NULL,
    vibe TEXT NOT NULL DEFAULT '',
    song TEXT,
    message TEXT NOT NULL,
    photo_url TEXT NOT NULL DEFAULT '',
    is_anonymous INTEGER NOT NULL DEFAULT 1,
    sender_name TEXT NOT NULL DEFAULT '',
    delivery_method TEXT NOT NULL,
    recipient_instagram TEXT NOT NULL DEFAULT '',
    sender_email TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    status TEXT NOT NULL,
    view_count INTEGER NOT NULL DEFAULT 0,
    delivered_at INTEGER,
    first_viewed_at INTEGER,
    last_viewed_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_notes_queue ON notes(delivery_method, status, created_at);
`

const noteColumns = `id, recipient_name, vibe, song, message, photo_url, is_anonymous, sender_name,
	delivery_method, recipient_instagram, sender_email, created_at, status, view_count,
	delivered_at, first_viewed_at, last_viewed_at`

// SQLiteStore keeps notes in a single SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// OpenSQLite opens the database at path and applies the schema
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer keeps SQLITE_BUSY out of concurrent submits
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.Named("sqlite"), now: time.Now}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func encodeSong(song *models.SongRef) (sql.NullString, error) {
	if song == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(song)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeSong(v sql.NullString) (*models.SongRef, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var song models.SongRef
	if err := json.Unmarshal([]byte(v.String), &song); err != nil {
		return nil, fmt.Errorf("decode song: %w", err)
	}
	return &song, nil
}

func scanNote(row rowScanner) (*models.PersistedNote, error) {
	var (
		n                                    models.PersistedNote
		song                                 sql.NullString
		createdAt                            int64
		deliveredAt, firstViewed, lastViewed sql.NullInt64
	)
	err := row.Scan(&n.ID, &n.RecipientName, &n.Vibe, &song, &n.Message, &n.PhotoURL,
		&n.IsAnonymous, &n.SenderName, &n.DeliveryMethod, &n.RecipientInstagram, &n.SenderEmail,
		&createdAt, &n.Status, &n.ViewCount, &deliveredAt, &firstViewed, &lastViewed)
	if err != nil {
		return nil, err
	}
	if n.Song, err = decodeSong(song); err != nil {
		return nil, err
	}
	n.CreatedAt = time.Unix(0, createdAt).UTC()
	n.DeliveredAt = fromNanos(deliveredAt)
	n.FirstViewedAt = fromNanos(firstViewed)
	n.LastViewedAt = fromNanos(lastViewed)
	return &n, nil
}

// CreateNote stores a new note
func (s *SQLiteStore) CreateNote(ctx context.Context, rec models.NoteRecord) (*models.PersistedNote, error) {
	id, err := newNoteID(func(id string) (bool, error) {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, id).Scan(&one)
		if err == sql.ErrNoRows {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	note := models.NewPersistedNote(id, rec, s.now().UTC())
	song, err := encodeSong(note.Song)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.RecipientName, note.Vibe, song, note.Message, note.PhotoURL,
		note.IsAnonymous, note.SenderName, note.DeliveryMethod, note.RecipientInstagram, note.SenderEmail,
		note.CreatedAt.UnixNano(), note.Status, note.ViewCount,
		nullNanos(note.DeliveredAt), nullNanos(note.FirstViewedAt), nullNanos(note.LastViewedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note %s: %w", id, err)
	}
	return note, nil
}

// GetNote retrieves a note by ID
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*models.PersistedNote, error) {
	note, err := scanNote(s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note %s: %w", id, err)
	}
	return note, nil
}

// MarkDelivered moves a pending note to delivered
func (s *SQLiteStore) MarkDelivered(ctx context.Context, id string, at time.Time) (*models.PersistedNote, bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notes SET status = ?, delivered_at = ? WHERE id = ? AND status = ?`,
		models.StatusDelivered, at.UnixNano(), id, models.StatusPending)
	if err != nil {
		return nil, false, fmt.Errorf("mark note %s delivered: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	note, err := s.GetNote(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return note, affected == 1, nil
}

// RecordView counts one view
func (s *SQLiteStore) RecordView(ctx context.Context, id string, at time.Time) (*models.PersistedNote, error) {
	nanos := at.UnixNano()
	result, err := s.db.ExecContext(ctx,
		`UPDATE notes SET view_count = view_count + 1,
		 first_viewed_at = COALESCE(first_viewed_at, ?), last_viewed_at = ?
		 WHERE id = ?`,
		nanos, nanos, id)
	if err != nil {
		return nil, fmt.Errorf("record view of %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetNote(ctx, id)
}

func (s *SQLiteStore) query(ctx context.Context, where string, args ...any) ([]*models.PersistedNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	notes := []*models.PersistedNote{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// ListDeliveryRequests returns admin-delivery notes, newest first
func (s *SQLiteStore) ListDeliveryRequests(ctx context.Context, filter StatusFilter) ([]*models.PersistedNote, error) {
	if filter == FilterAll {
		return s.query(ctx, `WHERE delivery_method = ?`, models.DeliveryAdmin)
	}
	return s.query(ctx, `WHERE delivery_method = ? AND status = ?`, models.DeliveryAdmin, string(filter))
}

// ListNotes returns every note, newest first
func (s *SQLiteStore) ListNotes(ctx context.Context) ([]*models.PersistedNote, error) {
	return s.query(ctx, ``)
}

// DeleteNote deletes a note by ID
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarises all notes
func (s *SQLiteStore) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	var stats models.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN delivery_method = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN delivery_method = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(view_count), 0)
		FROM notes`,
		models.StatusPending, models.StatusDelivered, startOfDay(now).UnixNano(),
		models.DeliverySelf, models.DeliveryAdmin,
	).Scan(&stats.Total, &stats.Pending, &stats.Delivered, &stats.CreatedToday,
		&stats.Self, &stats.Admin, &stats.TotalViews)
	if err != nil {
		return models.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return stats, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
