package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"justanote/pkg/auth"
	"justanote/pkg/config"
	"justanote/pkg/handlers"
	"justanote/pkg/imaging"
	"justanote/pkg/notify"
	"justanote/pkg/services"
	"justanote/pkg/songs"
	"justanote/pkg/storage"
	"justanote/pkg/wizard"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = 10 * time.Minute
)

var backupEvery time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&backupEvery, "backup-every", 0, "write a backup archive at this interval (0 disables)")
}

func newNotifier(cfg *config.Config) *notify.EmailJS {
	return notify.NewEmailJS(notify.Config{
		Endpoint:  cfg.Email.Endpoint,
		ServiceID: cfg.Email.ServiceID,
		PublicKey: cfg.Email.PublicKey,
		Templates: map[notify.Event]string{
			notify.EventDelivered: cfg.Email.TemplateDelivered,
			notify.EventViewed:    cfg.Email.TemplateViewed,
		},
	}, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	compressor := imaging.NewCompressor(cfg.Images.MaxSide, cfg.Images.Quality, cfg.Images.MaxUploadBytes)
	compressor.MaxPixels = cfg.Images.MaxPixels
	notifier := newNotifier(cfg)
	if !notifier.Configured() {
		logger.Warn("EmailJS is not configured, sender notifications are disabled")
	}

	notes := services.NewNoteService(store, compressor, logger)
	views := services.NewViewService(store, notifier, cfg.Server.BaseURL, logger)
	defer views.Close()
	admin := services.NewAdminService(store, notifier, cfg.Server.BaseURL, logger)

	authManager := auth.NewManager(cfg.Admin.Emails, cfg.Admin.PasswordHash)
	if !authManager.Configured() {
		logger.Warn("admin login is disabled: set admin emails and a password hash")
	}

	seq := wizard.NewSequencer(
		wizard.NewLRUStore(cfg.Wizard.MaxSessions, cfg.Wizard.SessionTTL),
		notes,
		logger.Named("wizard"))
	songClient := songs.NewClient(songs.Options{
		SearchURL:    cfg.Songs.SearchURL,
		Timeout:      cfg.Songs.Timeout,
		CacheSize:    cfg.Songs.CacheSize,
		CacheTTL:     cfg.Songs.CacheTTL,
		PopularTerms: cfg.Songs.PopularTerms,
	}, logger)

	router := handlers.Router{
		Wizard:        handlers.NewWizardHandlers(seq, compressor, cfg.Images.MaxUploadBytes, cfg.Server.BaseURL, logger),
		API:           handlers.NewAPIHandlers(songs.NewSearcher(songClient), songClient, views, logger),
		Auth:          handlers.NewAuthHandlers(services.NewAuthService(authManager, logger), cfg.Server.SecureCookies, logger),
		Admin:         handlers.NewAdminHandlers(admin, logger),
		AuthManager:   authManager,
		SecureCookies: cfg.Server.SecureCookies,
		Logger:        logger,
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("base_url", cfg.Server.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := authManager.PruneExpired(); n > 0 {
					logger.Debug("expired admin sessions pruned", zap.Int("count", n))
				}
			}
		}
	})
	if backupEvery > 0 {
		g.Go(func() error {
			return runBackups(ctx, store, cfg.Storage.BackupDir, backupEvery)
		})
	}

	return g.Wait()
}

// runBackups archives the store every interval until ctx is done. A failed
// backup is logged and retried at the next tick.
func runBackups(ctx context.Context, store storage.Store, dir string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			path, err := storage.Backup(ctx, store, dir)
			if err != nil {
				logger.Error("scheduled backup failed", zap.Error(err))
				continue
			}
			logger.Info("backup written", zap.String("path", path))
		}
	}
}
