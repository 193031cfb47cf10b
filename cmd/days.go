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

var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "Per-day purchase table",
	RunE:  runDays,
}

func init() {
	rootCmd.AddCommand(daysCmd)
}

func runDays(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	data := store.NewLedgerStore(kv).Load(ctx)
	days := data.Days()
	if len(days) == 0 {
		fmt.Println("\n  No purchases recorded yet.")
		return nil
	}

	today := nst.DayKey(nst.Now())

	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY PURCHASES"))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	for _, d := range days {
		day := data[d]
		rows = append(rows, []string{
			cli.FormatDayLabel(d, today),
			fmt.Sprintf("%d", len(day.Items)),
			cli.TotalStyle(day.Total, ledger.DailyLimit).Render(cli.FormatProgress(day.Total, ledger.DailyLimit)),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Items", "Total"},
		Rows:    rows,
	}))
	fmt.Printf("\n  Lifetime purchases: %s\n\n", cli.FormatNumber(int64(data.LifetimeTotal())))
	return nil
}
