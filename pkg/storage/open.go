package storage

import (
	"fmt"

	"go.uber.org/zap"

	"justanote/pkg/config"
	"justanote/pkg/crypto"
)

// Open builds the store selected by cfg, sealed when a passphrase is configured
func Open(cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store Store
		err   error
	)
	switch cfg.Storage.Driver {
	case config.DriverFile:
		store, err = NewFileStore(cfg.Storage.NotesPath, logger)
	case config.DriverSQLite:
		store, err = OpenSQLite(cfg.Storage.SQLitePath, logger)
	case config.DriverMySQL:
		store, err = OpenMySQL(cfg.MySQLDSN(), logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("storage opened", zap.String("driver", cfg.Storage.Driver))

	if cfg.Storage.SealPassphrase == "" {
		return store, nil
	}
	sealer, err := crypto.NewSealer(cfg.Storage.SealPassphrase, []byte(cfg.Storage.SealSalt))
	if err != nil {
		store.Close()
		return nil, err
	}
	return NewSealedStore(store, sealer), nil
}
