// Package tracker owns the purchase ledger. It is the single writer: the
// proxy, the CLI, and the page-load cap check all mutate state through
// ApplyPurchase/ApplyCapReached, which serializes every read-modify-write
// under one lock. Everyone else gets snapshots.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/safeira/iglootrack/internal/classify"
	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/nst"
	"github.com/safeira/iglootrack/internal/store"
)

// Tracker aggregates classified purchase events into the per-day ledger.
type Tracker struct {
	mu     sync.Mutex
	data   ledger.Ledger
	store  *store.LedgerStore
	log    zerolog.Logger
	onSave func(snapshot ledger.Ledger, todayKey string)
}

// New loads the persisted ledger and returns the tracker owning it.
func New(ctx context.Context, ls *store.LedgerStore, log zerolog.Logger) *Tracker {
	return &Tracker{
		data:  ls.Load(ctx),
		store: ls,
		log:   log.With().Str("component", "tracker").Logger(),
	}
}

// OnChange registers a callback invoked after every persisted state
// change with a fresh snapshot and the current day key. Presentation
// only; the callback must not call back into the tracker's writers.
func (t *Tracker) OnChange(fn func(snapshot ledger.Ledger, todayKey string)) {
	t.mu.Lock()
	t.onSave = fn
	t.mu.Unlock()
}

// ApplyPurchase records one successful purchase at the given instant.
// Each call is a genuine new event; callers dispatch exactly once per
// real purchase. An empty itemID lands in the unknown bucket.
func (t *Tracker) ApplyPurchase(ctx context.Context, itemID, itemName string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if itemID == "" {
		itemID = ledger.UnknownKey
	}
	dayKey := nst.DayKey(at)

	day := t.data.Day(dayKey)
	day.Total++
	rec := day.Item(itemID, itemName)
	rec.Count++
	rec.Timestamps = append(rec.Timestamps, nst.TimeOfDay(at))

	t.log.Info().
		Str("day", dayKey).
		Str("item_id", itemID).
		Str("item_name", rec.Name).
		Int("total", day.Total).
		Msg("purchase recorded")

	return t.persistLocked(ctx, dayKey)
}

// ApplyCapReached marks the day as full. Idempotent: once the total is at
// the cap it does nothing. Otherwise the total jumps to the cap and the
// gap is backfilled into the unknown bucket without timestamps; the true
// per-purchase detail for a server-side fill is unrecoverable, so the
// aggregate wins over provenance. The total never decreases.
func (t *Tracker) ApplyCapReached(ctx context.Context, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dayKey := nst.DayKey(at)
	day := t.data.Day(dayKey)

	if day.Total >= ledger.DailyLimit {
		return nil
	}

	remaining := ledger.DailyLimit - day.Total
	day.Total = ledger.DailyLimit
	if remaining > 0 {
		day.Item(ledger.UnknownKey, "").Count += remaining
	}

	t.log.Info().
		Str("day", dayKey).
		Int("backfilled", remaining).
		Msg("daily cap reached")

	return t.persistLocked(ctx, dayKey)
}

// Apply dispatches a classifier outcome. NoOp outcomes are dropped here
// so call sites don't branch.
func (t *Tracker) Apply(ctx context.Context, out classify.Outcome, at time.Time) error {
	switch out.Kind {
	case classify.KindPurchase:
		return t.ApplyPurchase(ctx, out.ItemID, out.ItemName, at)
	case classify.KindCapReached:
		return t.ApplyCapReached(ctx, at)
	default:
		return nil
	}
}

// persistLocked saves the ledger and fires the change callback. A write
// failure loses this event's persistence but keeps the in-memory state;
// the next successful save re-persists the cumulative ledger.
func (t *Tracker) persistLocked(ctx context.Context, dayKey string) error {
	err := t.store.Save(ctx, t.data)
	if err != nil {
		t.log.Warn().Err(err).Msg("ledger save failed; state kept in memory")
	}
	if t.onSave != nil {
		t.onSave(t.data.Clone(), dayKey)
	}
	return err
}

// Snapshot returns a deep copy of the ledger.
func (t *Tracker) Snapshot() ledger.Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.Clone()
}

// DayTotal returns the recorded total for dayKey, zero if absent.
func (t *Tracker) DayTotal(dayKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if day, ok := t.data[dayKey]; ok && day != nil {
		return day.Total
	}
	return 0
}

// LifetimeTotal sums every recorded day.
func (t *Tracker) LifetimeTotal() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.LifetimeTotal()
}
