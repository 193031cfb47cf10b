package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/cli"
	"github.com/safeira/iglootrack/internal/store"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show stored preferences",
	RunE:  runPrefsShow,
}

var prefsNotifyCmd = &cobra.Command{
	Use:       "notify {on|off}",
	Short:     "Enable or disable the one-hour reset reminder",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(_ *cobra.Command, args []string) error {
		return setPref(store.NotifyEnabledKey, args[0])
	},
}

var prefsMinimizedCmd = &cobra.Command{
	Use:       "minimized {on|off}",
	Short:     "Start the panel minimized",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(_ *cobra.Command, args []string) error {
		return setPref(store.MinimizedKey, args[0])
	},
}

func init() {
	prefsCmd.AddCommand(prefsNotifyCmd)
	prefsCmd.AddCommand(prefsMinimizedCmd)
	rootCmd.AddCommand(prefsCmd)
}

func runPrefsShow(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Reminder", boolWord(store.GetBool(ctx, kv, store.NotifyEnabledKey, false))},
		{"Minimized", boolWord(store.GetBool(ctx, kv, store.MinimizedKey, false))},
	}))
	fmt.Println()
	return nil
}

func setPref(key, word string) error {
	if word != "on" && word != "off" {
		return fmt.Errorf("expected on or off, got %q", word)
	}

	ctx := context.Background()
	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	if err := store.SetBool(ctx, kv, key, word == "on"); err != nil {
		return err
	}
	fmt.Printf("  %s set to %s\n", key, word)
	return nil
}
