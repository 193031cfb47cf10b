package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/safeira/iglootrack/internal/classify"
	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.LedgerStore) {
	t.Helper()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	ls := store.NewLedgerStore(kv)
	return New(context.Background(), ls, zerolog.Nop()), ls
}

// nstInstant builds an instant at the given NST wall clock on 2024-01-01.
func nstInstant(t *testing.T, hour, min, sec int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return time.Date(2024, 1, 1, hour, min, sec, 0, loc)
}

func TestApplyPurchaseAccumulates(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	t1 := nstInstant(t, 10, 0, 0)
	t2 := nstInstant(t, 10, 5, 0)
	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", t1))
	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", t2))

	snap := tr.Snapshot()
	day := snap["2024-01-01"]
	require.NotNil(t, day)
	require.Equal(t, 2, day.Total)

	rec := day.Items["123"]
	require.NotNil(t, rec)
	require.Equal(t, "Snow Fort", rec.Name)
	require.Equal(t, 2, rec.Count)
	require.Equal(t, []string{"10:00:00", "10:05:00"}, rec.Timestamps)
}

func TestTotalMatchesItemSum(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	ids := []string{"a", "b", "a", "c", "", "b", "a"}
	for i, id := range ids {
		require.NoError(t, tr.ApplyPurchase(ctx, id, "", nstInstant(t, 9, i, 0)))
	}

	day := tr.Snapshot()["2024-01-01"]
	require.Equal(t, len(ids), day.Total)
	require.Equal(t, day.Total, day.ItemSum())
	require.Equal(t, ledger.UnknownName, day.Items[ledger.UnknownKey].Name)
}

func TestCapReachedOnEmptyDay(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.ApplyCapReached(ctx, nstInstant(t, 12, 0, 0)))

	day := tr.Snapshot()["2024-01-01"]
	require.Equal(t, 10, day.Total)

	unknown := day.Items[ledger.UnknownKey]
	require.NotNil(t, unknown)
	require.Equal(t, ledger.UnknownName, unknown.Name)
	require.Equal(t, 10, unknown.Count)
	require.Empty(t, unknown.Timestamps, "synthetic fill appends no timestamps")
}

func TestCapReachedIdempotent(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	at := nstInstant(t, 12, 0, 0)

	require.NoError(t, tr.ApplyCapReached(ctx, at))
	once := tr.Snapshot()

	require.NoError(t, tr.ApplyCapReached(ctx, at.Add(time.Minute)))
	require.Equal(t, once, tr.Snapshot())
}

func TestCapReachedBackfillsGap(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	// Seven purchases of one item, one of another, then the cap signal.
	for i := 0; i < 7; i++ {
		require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", nstInstant(t, 8, i, 0)))
	}
	require.NoError(t, tr.ApplyPurchase(ctx, "456", "Toy Sled", nstInstant(t, 9, 0, 0)))
	require.NoError(t, tr.ApplyCapReached(ctx, nstInstant(t, 9, 5, 0)))

	day := tr.Snapshot()["2024-01-01"]
	require.Equal(t, 10, day.Total)
	require.Equal(t, 2, day.Items[ledger.UnknownKey].Count)
	require.Equal(t, day.Total, day.ItemSum())
}

func TestCapReachedNeverDecreases(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.ApplyCapReached(ctx, nstInstant(t, 9, 0, 0)))
	// Late-arriving purchase after the fill: last writer wins, total may
	// exceed the cap, and a following cap signal must not roll it back.
	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", nstInstant(t, 9, 1, 0)))
	require.Equal(t, 11, tr.DayTotal("2024-01-01"))

	require.NoError(t, tr.ApplyCapReached(ctx, nstInstant(t, 9, 2, 0)))
	require.Equal(t, 11, tr.DayTotal("2024-01-01"))
}

func TestRolloverSplitsDays(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	before := time.Date(2024, 1, 1, 23, 59, 59, 0, loc)
	after := time.Date(2024, 1, 2, 0, 0, 1, 0, loc)
	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", before))
	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", after))

	snap := tr.Snapshot()
	require.Equal(t, 1, snap["2024-01-01"].Total)
	require.Equal(t, 1, snap["2024-01-02"].Total)
	require.Equal(t, 2, tr.LifetimeTotal())
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	ls := store.NewLedgerStore(kv)
	ctx := context.Background()

	tr := New(ctx, ls, zerolog.Nop())
	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", nstInstant(t, 10, 0, 0)))

	reopened := New(ctx, ls, zerolog.Nop())
	require.Equal(t, 1, reopened.DayTotal("2024-01-01"))
}

func TestApplyDispatch(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	at := nstInstant(t, 10, 0, 0)

	require.NoError(t, tr.Apply(ctx, classify.Outcome{Kind: classify.KindNoOp}, at))
	require.Equal(t, 0, tr.LifetimeTotal())

	require.NoError(t, tr.Apply(ctx, classify.Outcome{Kind: classify.KindPurchase, ItemID: "123", ItemName: "Snow Fort"}, at))
	require.Equal(t, 1, tr.DayTotal("2024-01-01"))

	require.NoError(t, tr.Apply(ctx, classify.Outcome{Kind: classify.KindCapReached}, at))
	require.Equal(t, 10, tr.DayTotal("2024-01-01"))
}

func TestOnChangeSnapshotIsDetached(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	var gotKey string
	var gotSnap ledger.Ledger
	tr.OnChange(func(snap ledger.Ledger, todayKey string) {
		gotSnap = snap
		gotKey = todayKey
	})

	require.NoError(t, tr.ApplyPurchase(ctx, "123", "Snow Fort", nstInstant(t, 10, 0, 0)))
	require.Equal(t, "2024-01-01", gotKey)
	require.NotNil(t, gotSnap)

	// Mutating the callback's snapshot must not leak into the tracker.
	gotSnap.Day("2024-01-01").Total = 99
	require.Equal(t, 1, tr.DayTotal("2024-01-01"))
}
