package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive purchase panel",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	kv, err := openKV(context.Background())
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	p := tea.NewProgram(tui.NewPanel(kv), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running panel: %w", err)
	}
	return nil
}
