package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"justanote/pkg/crypto"
	"justanote/pkg/models"
	"justanote/pkg/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type storeFactory func(t *testing.T) Store

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), nil)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "notes.db"), nil)
			require.NoError(t, err)
			return s
		},
		"sealed": func(t *testing.T) Store {
			inner, err := NewFileStore(t.TempDir(), nil)
			require.NoError(t, err)
			sealer, err := crypto.NewSealer("test-passphrase", []byte("salt"))
			require.NoError(t, err)
			return NewSealedStore(inner, sealer)
		},
	}
}

func adminRecord(name string) models.NoteRecord {
	return models.NoteRecord{
		RecipientName:      name,
		Vibe:               "3",
		Message:            "thinking of you",
		IsAnonymous:        true,
		DeliveryMethod:     models.DeliveryAdmin,
		RecipientInstagram: "jane_doe",
		SenderEmail:        "sender@example.com",
	}
}

func selfRecord(name string) models.NoteRecord {
	return models.NoteRecord{
		RecipientName:  name,
		Message:        "hello",
		IsAnonymous:    false,
		SenderName:     "Sam",
		DeliveryMethod: models.DeliverySelf,
		Song: &models.SongRef{
			Type: models.SongYouTube, Title: "Song", Artist: "Band",
			VideoID: "dQw4w9WgXcQ", StartTime: 10, EndTime: 40,
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

func TestCreateAndGetNote(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		admin, err := s.CreateNote(ctx, adminRecord("Jane"))
		require.NoError(t, err)
		assert.True(t, utils.IsValidNoteID(admin.ID))
		assert.Equal(t, models.StatusPending, admin.Status)
		assert.Nil(t, admin.DeliveredAt)

		self, err := s.CreateNote(ctx, selfRecord("Alex"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusDelivered, self.Status)
		require.NotNil(t, self.DeliveredAt)
		assert.True(t, self.DeliveredAt.Equal(self.CreatedAt))

		got, err := s.GetNote(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane", got.RecipientName)
		assert.Equal(t, "jane_doe", got.RecipientInstagram)
		assert.Equal(t, "sender@example.com", got.SenderEmail)
		assert.True(t, got.CreatedAt.Equal(admin.CreatedAt))

		got, err = s.GetNote(ctx, self.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Song)
		assert.Equal(t, "dQw4w9WgXcQ", got.Song.VideoID)
		assert.Equal(t, 40, got.Song.EndTime)
		assert.False(t, got.IsAnonymous)
		assert.Equal(t, "Sam", got.SenderName)

		_, err = s.GetNote(ctx, "ZZZZZZZZ")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarkDeliveredIsMonotonic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		note, err := s.CreateNote(ctx, adminRecord("Jane"))
		require.NoError(t, err)

		at := time.Now().Add(time.Minute)
		updated, changed, err := s.MarkDelivered(ctx, note.ID, at)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.StatusDelivered, updated.Status)
		require.NotNil(t, updated.DeliveredAt)
		assert.True(t, updated.DeliveredAt.Equal(at))

		again, changed, err := s.MarkDelivered(ctx, note.ID, at.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, again.DeliveredAt.Equal(at), "first delivery time is kept")

		_, _, err = s.MarkDelivered(ctx, "ZZZZZZZZ", at)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecordView(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		note, err := s.CreateNote(ctx, selfRecord("Alex"))
		require.NoError(t, err)

		first := time.Now()
		viewed, err := s.RecordView(ctx, note.ID, first)
		require.NoError(t, err)
		assert.Equal(t, 1, viewed.ViewCount)

		second := first.Add(time.Minute)
		viewed, err = s.RecordView(ctx, note.ID, second)
		require.NoError(t, err)
		assert.Equal(t, 2, viewed.ViewCount)
		require.NotNil(t, viewed.FirstViewedAt)
		require.NotNil(t, viewed.LastViewedAt)
		assert.True(t, viewed.FirstViewedAt.Equal(first))
		assert.True(t, viewed.LastViewedAt.Equal(second))

		_, err = s.RecordView(ctx, "ZZZZZZZZ", first)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListDeliveryRequests(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		older, err := s.CreateNote(ctx, adminRecord("Older"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		newer, err := s.CreateNote(ctx, adminRecord("Newer"))
		require.NoError(t, err)
		_, err = s.CreateNote(ctx, selfRecord("Self"))
		require.NoError(t, err)

		_, _, err = s.MarkDelivered(ctx, older.ID, time.Now())
		require.NoError(t, err)

		all, err := s.ListDeliveryRequests(ctx, FilterAll)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, newer.ID, all[0].ID, "newest first")
		assert.Equal(t, older.ID, all[1].ID)

		pending, err := s.ListDeliveryRequests(ctx, FilterPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, newer.ID, pending[0].ID)

		delivered, err := s.ListDeliveryRequests(ctx, FilterDelivered)
		require.NoError(t, err)
		require.Len(t, delivered, 1)
		assert.Equal(t, older.ID, delivered[0].ID)

		notes, err := s.ListNotes(ctx)
		require.NoError(t, err)
		assert.Len(t, notes, 3)
	})
}

func TestDeleteNote(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		note, err := s.CreateNote(ctx, adminRecord("Jane"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteNote(ctx, note.ID))
		_, err = s.GetNote(ctx, note.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteNote(ctx, note.ID), ErrNotFound)
	})
}

func TestStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a, err := s.CreateNote(ctx, adminRecord("A"))
		require.NoError(t, err)
		_, err = s.CreateNote(ctx, adminRecord("B"))
		require.NoError(t, err)
		c, err := s.CreateNote(ctx, selfRecord("C"))
		require.NoError(t, err)

		_, _, err = s.MarkDelivered(ctx, a.ID, time.Now())
		require.NoError(t, err)
		_, err = s.RecordView(ctx, c.ID, time.Now())
		require.NoError(t, err)
		_, err = s.RecordView(ctx, c.ID, time.Now())
		require.NoError(t, err)

		stats, err := s.Stats(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, models.Stats{
			Total: 3, Pending: 1, Delivered: 2, CreatedToday: 3,
			Self: 1, Admin: 2, TotalViews: 2,
		}, stats)

		tomorrow, err := s.Stats(ctx, time.Now().Add(48*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, tomorrow.CreatedToday)
	})
}

func TestParseStatusFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    StatusFilter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"pending", FilterPending, false},
		{"delivered", FilterDelivered, false},
		{"archived", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatusFilter(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
