package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"justanote/pkg/config"
	"justanote/pkg/storage"
)

var (
	configPath string
	envFiles   []string
	debug      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "justanote",
	Short: "Just A Note - anonymous notes with a song, a photo and a delivery",
	Long: `justanote serves the note creation flow, public note pages and the
admin delivery queue, and offers operator commands for the same store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if debug {
			zcfg = zap.NewDevelopmentConfig()
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $JUSTANOTE_CONFIG or ~/.config/justanote/config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "development logging at debug level")

	rootCmd.AddCommand(serveCmd, queueCmd, statsCmd, deliverCmd, backupCmd, hashPasswordCmd)
}

// loadConfig loads dotenv files and the config file
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("config", configPathOrDefault()),
		zap.String("driver", cfg.Storage.Driver))
	return cfg, nil
}

func configPathOrDefault() string {
	if configPath != "" {
		return configPath
	}
	return config.GetConfigFilePath()
}

// openStore loads the config and opens the configured store
func openStore() (*config.Config, storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return cfg, store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
