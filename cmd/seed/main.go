// Command seed fills the configured store with fake notes for local testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"go.uber.org/zap"

	"justanote/pkg/config"
	"justanote/pkg/models"
	"justanote/pkg/services"
	"justanote/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file")
		count      = flag.Int("n", 20, "number of notes")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		delivered  = flag.Float64("delivered", 0.3, "share of admin notes marked delivered")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath, *count, *seed, *delivered, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

func run(configPath string, count int, seed int64, deliveredShare float64, logger *zap.Logger) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	fake := faker.NewWithSeed(rand.NewSource(seed))
	notes := services.NewNoteService(store, nil, logger)
	admin := services.NewAdminService(store, nil, cfg.Server.BaseURL, logger)

	for i := 0; i < count; i++ {
		note, err := notes.Submit(ctx, fakeDraft(fake), nil)
		if err != nil {
			return fmt.Errorf("note %d: %w", i, err)
		}
		if note.DeliveryMethod == models.DeliveryAdmin && fake.Float64(2, 0, 1) < deliveredShare {
			if _, _, err := admin.MarkDelivered(ctx, note.ID); err != nil {
				return err
			}
		}
		for v := fake.IntBetween(0, 3); v > 0; v-- {
			if _, err := store.RecordView(ctx, note.ID, time.Now()); err != nil {
				return err
			}
		}
		fmt.Printf("%s  %s\n", note.ID, admin.Link(note.ID))
	}
	logger.Info("seeded notes", zap.Int("count", count), zap.Int64("seed", seed))
	return nil
}

func fakeDraft(fake faker.Faker) models.NoteDraft {
	d := models.NewDraft()
	d.RecipientName = fake.Person().FirstName()
	d.Vibe = models.Vibes[fake.IntBetween(0, len(models.Vibes)-1)].ID
	d.Message = fake.Lorem().Paragraph(fake.IntBetween(1, 3))
	d.IsAnonymous = fake.Bool()
	if !d.IsAnonymous {
		d.SenderName = fake.Person().FirstName()
	}
	if fake.Bool() {
		d.Song = &models.SongRef{
			Type:    models.SongITunes,
			Title:   fake.Music().Name(),
			Artist:  fake.Music().Author(),
			TrackID: strconv.Itoa(fake.IntBetween(100000, 999999)),
		}
	}

	if fake.Bool() {
		d.Delivery = models.SelfDelivery{SenderEmail: optional(fake, fake.Internet().Email())}
	} else {
		handle := strings.ToLower(fake.Internet().User())
		d.Delivery = models.AdminDelivery{
			RecipientInstagram: "@" + handle,
			SenderEmail:        optional(fake, fake.Internet().Email()),
		}
	}
	return d
}

func optional(fake faker.Faker, s string) string {
	if fake.Bool() {
		return s
	}
	return ""
}
