package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/config"
	"github.com/safeira/iglootrack/internal/store"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	backend := cfg.Store.Backend
	if backend == "" {
		backend = "sqlite"
	}
	listen := cfg.Proxy.Listen
	redisAddr := cfg.Store.Redis.Address
	notify := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage backend").
				Description("Where the purchase ledger is kept.").
				Options(
					huh.NewOption("SQLite (local file)", "sqlite"),
					huh.NewOption("Redis", "redis"),
				).
				Value(&backend),
			huh.NewInput().
				Title("Proxy listen address").
				Description("Point your browser's HTTP proxy here.").
				Value(&listen),
			huh.NewConfirm().
				Title("Reset reminder").
				Description("Desktop notification one hour before the NST midnight reset.").
				Value(&notify),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address").
				Value(&redisAddr),
		).WithHideFunc(func() bool { return backend != "redis" }),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Store.Backend = backend
	cfg.Proxy.Listen = listen
	cfg.Store.Redis.Address = redisAddr

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	ctx := context.Background()
	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	if err := store.SetBool(ctx, kv, store.NotifyEnabledKey, notify); err != nil {
		return fmt.Errorf("saving reminder preference: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Start tracking with `iglootrack run`.")
	fmt.Println()
	return nil
}
