package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/config"
	"github.com/safeira/iglootrack/internal/store"
)

var (
	flagDBPath string
	flagQuiet  bool

	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "iglootrack",
	Short: "Garage Sale Igloo purchase tracker",
	Long: "Track daily Garage Sale Igloo purchases: an intercepting proxy observes\n" +
		"the igloo endpoint, aggregates purchases per NST day, and reminds you\n" +
		"an hour before the reset.",
	RunE: runStatus,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger()
		if flagQuiet {
			logger = logger.Level(zerolog.WarnLevel)
		}
	},
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", config.DBPath(), "SQLite store path (sqlite backend only)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress informational logging")
}

// openKV opens the configured store backend.
func openKV(ctx context.Context) (store.KV, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("config unreadable, using defaults")
		cfg = config.DefaultConfig()
	}

	if cfg.Store.Backend == "redis" {
		kv, err := store.OpenRedis(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return kv, nil
	}

	kv, err := store.OpenSQLite(flagDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	return kv, nil
}
