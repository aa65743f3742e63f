package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"justanote/pkg/models"
)

// noteRow is the MySQL shape of a persisted note
type noteRow struct {
	ID                 string     `gorm:"primaryKey;size:16"`
	RecipientName      string     `gorm:"size:255;not null"`
	Vibe               string     `gorm:"size:8"`
	Song               string     `gorm:"type:text"`
	Message            string     `gorm:"type:text;not null"`
	PhotoURL           string     `gorm:"type:mediumtext"`
	IsAnonymous        bool       `gorm:"not null"`
	SenderName         string     `gorm:"size:255"`
	DeliveryMethod     string     `gorm:"size:16;not null;index:idx_notes_queue,priority:1"`
	RecipientInstagram string     `gorm:"size:255"`
	SenderEmail        string     `gorm:"size:512"`
	CreatedAt          time.Time  `gorm:"not null;index:idx_notes_queue,priority:3"`
	Status             string     `gorm:"size:16;not null;index:idx_notes_queue,priority:2"`
	ViewCount          int        `gorm:"not null"`
	DeliveredAt        *time.Time
	FirstViewedAt      *time.Time
	LastViewedAt       *time.Time
}

func (noteRow) TableName() string { return "notes" }

func toRow(n *models.PersistedNote) (noteRow, error) {
	row := noteRow{
		ID:                 n.ID,
		RecipientName:      n.RecipientName,
		Vibe:               string(n.Vibe),
		Message:            n.Message,
		PhotoURL:           n.PhotoURL,
		IsAnonymous:        n.IsAnonymous,
		SenderName:         n.SenderName,
		DeliveryMethod:     string(n.DeliveryMethod),
		RecipientInstagram: n.RecipientInstagram,
		SenderEmail:        n.SenderEmail,
		CreatedAt:          n.CreatedAt,
		Status:             string(n.Status),
		ViewCount:          n.ViewCount,
		DeliveredAt:        n.DeliveredAt,
		FirstViewedAt:      n.FirstViewedAt,
		LastViewedAt:       n.LastViewedAt,
	}
	if n.Song != nil {
		data, err := json.Marshal(n.Song)
		if err != nil {
			return noteRow{}, err
		}
		row.Song = string(data)
	}
	return row, nil
}

func (r noteRow) toNote() (*models.PersistedNote, error) {
	n := &models.PersistedNote{
		ID: r.ID,
		NoteRecord: models.NoteRecord{
			RecipientName:      r.RecipientName,
			Vibe:               models.Vibe(r.Vibe),
			Message:            r.Message,
			PhotoURL:           r.PhotoURL,
			IsAnonymous:        r.IsAnonymous,
			SenderName:         r.SenderName,
			DeliveryMethod:     models.DeliveryMethod(r.DeliveryMethod),
			RecipientInstagram: r.RecipientInstagram,
			SenderEmail:        r.SenderEmail,
		},
		CreatedAt:     r.CreatedAt,
		Status:        models.Status(r.Status),
		ViewCount:     r.ViewCount,
		DeliveredAt:   r.DeliveredAt,
		FirstViewedAt: r.FirstViewedAt,
		LastViewedAt:  r.LastViewedAt,
	}
	if r.Song != "" {
		var song models.SongRef
		if err := json.Unmarshal([]byte(r.Song), &song); err != nil {
			return nil, fmt.Errorf("decode song of %s: %w", r.ID, err)
		}
		n.Song = &song
	}
	return n, nil
}

// MySQLStore keeps notes in MySQL through gorm
type MySQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// OpenMySQL connects, pings and migrates the schema
func OpenMySQL(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return NewMySQLStore(db, logger)
}

// NewMySQLStore wraps an open gorm connection and migrates the schema
func NewMySQLStore(db *gorm.DB, logger *zap.Logger) (*MySQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&noteRow{}); err != nil {
		return nil, fmt.Errorf("migrate notes: %w", err)
	}
	return &MySQLStore{db: db, logger: logger.Named("mysql"), now: time.Now}, nil
}

// CreateNote stores a new note
func (s *MySQLStore) CreateNote(ctx context.Context, rec models.NoteRecord) (*models.PersistedNote, error) {
	db := s.db.WithContext(ctx)
	id, err := newNoteID(func(id string) (bool, error) {
		var count int64
		err := db.Model(&noteRow{}).Where("id = ?", id).Count(&count).Error
		return count > 0, err
	})
	if err != nil {
		return nil, err
	}

	note := models.NewPersistedNote(id, rec, s.now().UTC())
	row, err := toRow(note)
	if err != nil {
		return nil, err
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert note %s: %w", id, err)
	}
	return note, nil
}

// GetNote retrieves a note by ID
func (s *MySQLStore) GetNote(ctx context.Context, id string) (*models.PersistedNote, error) {
	var row noteRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note %s: %w", id, err)
	}
	return row.toNote()
}

// MarkDelivered moves a pending note to delivered
func (s *MySQLStore) MarkDelivered(ctx context.Context, id string, at time.Time) (*models.PersistedNote, bool, error) {
	result := s.db.WithContext(ctx).Model(&noteRow{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{"status": models.StatusDelivered, "delivered_at": at.UTC()})
	if result.Error != nil {
		return nil, false, fmt.Errorf("mark note %s delivered: %w", id, result.Error)
	}
	note, err := s.GetNote(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return note, result.RowsAffected == 1, nil
}

// RecordView counts one view
func (s *MySQLStore) RecordView(ctx context.Context, id string, at time.Time) (*models.PersistedNote, error) {
	at = at.UTC()
	result := s.db.WithContext(ctx).Model(&noteRow{}).Where("id = ?", id).
		Updates(map[string]any{
			"view_count":      gorm.Expr("view_count + 1"),
			"first_viewed_at": gorm.Expr("COALESCE(first_viewed_at, ?)", at),
			"last_viewed_at":  at,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("record view of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetNote(ctx, id)
}

func (s *MySQLStore) find(query *gorm.DB) ([]*models.PersistedNote, error) {
	var rows []noteRow
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	notes := make([]*models.PersistedNote, 0, len(rows))
	for _, row := range rows {
		note, err := row.toNote()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// ListDeliveryRequests returns admin-delivery notes, newest first
func (s *MySQLStore) ListDeliveryRequests(ctx context.Context, filter StatusFilter) ([]*models.PersistedNote, error) {
	query := s.db.WithContext(ctx).Where("delivery_method = ?", models.DeliveryAdmin)
	if filter != FilterAll {
		query = query.Where("status = ?", string(filter))
	}
	return s.find(query)
}

// ListNotes returns every note, newest first
func (s *MySQLStore) ListNotes(ctx context.Context) ([]*models.PersistedNote, error) {
	return s.find(s.db.WithContext(ctx))
}

// DeleteNote deletes a note by ID
func (s *MySQLStore) DeleteNote(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&noteRow{})
	if result.Error != nil {
		return fmt.Errorf("delete note %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarises all notes
func (s *MySQLStore) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	var row struct {
		Total        int
		Pending      int
		Delivered    int
		CreatedToday int
		SelfCount    int
		AdminCount   int
		TotalViews   int
	}
	err := s.db.WithContext(ctx).Model(&noteRow{}).Select(`
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS delivered,
		COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS created_today,
		COALESCE(SUM(CASE WHEN delivery_method = ? THEN 1 ELSE 0 END), 0) AS self_count,
		COALESCE(SUM(CASE WHEN delivery_method = ? THEN 1 ELSE 0 END), 0) AS admin_count,
		COALESCE(SUM(view_count), 0) AS total_views`,
		models.StatusPending, models.StatusDelivered, startOfDay(now).UTC(),
		models.DeliverySelf, models.DeliveryAdmin,
	).Scan(&row).Error
	if err != nil {
		return models.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return models.Stats{
		Total:        row.Total,
		Pending:      row.Pending,
		Delivered:    row.Delivered,
		CreatedToday: row.CreatedToday,
		Self:         row.SelfCount,
		Admin:        row.AdminCount,
		TotalViews:   row.TotalViews,
	}, nil
}

// Close closes the underlying connection pool
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
