package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/nst"
	"github.com/safeira/iglootrack/internal/store"
	"github.com/safeira/iglootrack/internal/tracker"
)

var flagRecordCap bool

var recordCmd = &cobra.Command{
	Use:   "record [item-id] [item-name]",
	Short: "Manually record a purchase or a cap-reached signal",
	Long: "Record an event outside the proxy, e.g. a purchase made from another\n" +
		"browser. With --cap-reached the day is marked full and the remainder\n" +
		"lands in the Unknown Item bucket.",
	Args: cobra.MaximumNArgs(2),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().BoolVar(&flagRecordCap, "cap-reached", false, "Mark today as capped instead of recording an item")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(_ *cobra.Command, args []string) error {
	if !flagRecordCap && len(args) == 0 {
		return errors.New("an item id is required unless --cap-reached is set")
	}

	ctx := context.Background()
	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	tr := tracker.New(ctx, store.NewLedgerStore(kv), logger)
	now := nst.Now()

	if flagRecordCap {
		if err := tr.ApplyCapReached(ctx, now); err != nil {
			return err
		}
		fmt.Printf("  Marked %s as capped (%d/%d)\n", nst.DayKey(now), tr.DayTotal(nst.DayKey(now)), ledger.DailyLimit)
		return nil
	}

	itemID := args[0]
	itemName := ""
	if len(args) > 1 {
		itemName = args[1]
	}
	if err := tr.ApplyPurchase(ctx, itemID, itemName, now); err != nil {
		return err
	}
	fmt.Printf("  Recorded purchase of %s at %s (%s)\n", itemID, nst.TimeOfDay(now), nst.DayKey(now))
	return nil
}
