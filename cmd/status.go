package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/cli"
	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/nst"
	"github.com/safeira/iglootrack/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Today's purchases and the reset countdown",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	data := store.NewLedgerStore(kv).Load(ctx)
	now := nst.Now()
	today := nst.DayKey(now)

	total := 0
	day, ok := data[today]
	if ok && day != nil {
		total = day.Total
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("Igloo Purchases"))
	fmt.Println()

	totalStr := cli.TotalStyle(total, ledger.DailyLimit).Render(cli.FormatProgress(total, ledger.DailyLimit))
	fmt.Print(cli.RenderKV([][2]string{
		{"Today (" + today + ")", totalStr},
		{"Lifetime", cli.FormatNumber(int64(data.LifetimeTotal()))},
		{"Reset", nst.FormatCountdown(nst.UntilReset(now))},
		{"Reminder", boolWord(store.GetBool(ctx, kv, store.NotifyEnabledKey, false))},
	}))

	if ok && day != nil && len(day.Items) > 0 {
		fmt.Println()
		for _, item := range day.SortedItems() {
			fmt.Printf("  %s × %d\n", item.Name, item.Count)
			if len(item.Timestamps) > 0 {
				fmt.Println("    " + cli.Muted(cli.FormatTimestamps(item.Timestamps)))
			}
		}
	}
	fmt.Println()
	return nil
}

func boolWord(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
