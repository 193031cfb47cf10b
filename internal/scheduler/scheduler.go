// Package scheduler arms the two one-shot timers anchored to NST
// midnight: a pre-reset reminder and the rollover that starts the next
// day's chain. Timers are one-shot and self-rescheduling; each arm
// recomputes the boundary fresh instead of assuming a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/notify"
	"github.com/safeira/iglootrack/internal/nst"
	"github.com/safeira/iglootrack/internal/store"
)

const (
	// WarningLead is how long before the reset the reminder fires.
	WarningLead = time.Hour
	// RolloverGrace pads the rollover timer past midnight so the day key
	// has definitely changed when it fires.
	RolloverGrace = time.Second

	notifyTitle = "Neopets Igloo Reminder"
)

// Totals is the read-side the scheduler needs from the tracker.
type Totals interface {
	DayTotal(dayKey string) int
	Snapshot() ledger.Ledger
}

// timer lets tests substitute time.AfterFunc.
type timer interface {
	Stop() bool
}

// Scheduler runs the per-day Unarmed -> Armed -> Fired chain.
type Scheduler struct {
	kv       store.KV
	totals   Totals
	notifier notify.Notifier
	refresh  func(snapshot ledger.Ledger, todayKey string)
	log      zerolog.Logger

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer

	mu       sync.Mutex
	armedDay string
	warn     timer
	rollover timer
}

// New builds a scheduler. refresh may be nil.
func New(kv store.KV, totals Totals, notifier notify.Notifier, refresh func(ledger.Ledger, string), log zerolog.Logger) *Scheduler {
	if notifier == nil {
		notifier = notify.Disabled{}
	}
	return &Scheduler{
		kv:       kv,
		totals:   totals,
		notifier: notifier,
		refresh:  refresh,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// Arm computes the next boundary and arms both timers for the current
// day. Calling it again for a day that already has an active chain is a
// no-op, so duplicate session starts cannot double-arm.
func (s *Scheduler) Arm(ctx context.Context) {
	now := s.now()
	dayKey := nst.DayKey(now)
	boundary := nst.NextMidnight(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armedDay == dayKey {
		return
	}
	s.stopLocked()
	s.armedDay = dayKey

	if s.warningEligible(ctx, dayKey, now, boundary) {
		warnAt := boundary.Add(-WarningLead)
		s.warn = s.afterFunc(warnAt.Sub(now), func() { s.fireWarning(dayKey) })
		s.log.Debug().Str("day", dayKey).Time("warn_at", warnAt).Msg("reminder armed")
	}

	rollAt := boundary.Add(RolloverGrace)
	s.rollover = s.afterFunc(rollAt.Sub(now), func() { s.fireRollover(ctx) })
	s.log.Debug().Str("day", dayKey).Time("rollover_at", rollAt).Msg("rollover armed")
}

// warningEligible gates the reminder: reminders on, permission granted,
// day not already capped, not already notified today, and the warning
// instant still ahead. A session starting inside the final hour skips the
// day entirely; there is no catch-up firing.
func (s *Scheduler) warningEligible(ctx context.Context, dayKey string, now, boundary time.Time) bool {
	if !store.GetBool(ctx, s.kv, store.NotifyEnabledKey, false) {
		return false
	}
	if s.notifier.Permission() != notify.PermissionGranted {
		return false
	}
	if s.totals.DayTotal(dayKey) >= ledger.DailyLimit {
		return false
	}
	if store.GetBool(ctx, s.kv, store.NotifyMarkerKey(dayKey), false) {
		return false
	}
	return boundary.Add(-WarningLead).After(now)
}

// fireWarning emits the one reminder for dayKey and persists the marker
// so reloads within the same day never repeat it.
func (s *Scheduler) fireWarning(dayKey string) {
	ctx := context.Background()
	if store.GetBool(ctx, s.kv, store.NotifyMarkerKey(dayKey), false) {
		return
	}

	total := s.totals.DayTotal(dayKey)
	body := fmt.Sprintf("Today: %d/%d items bought. 1 hour until NST reset.", total, ledger.DailyLimit)
	if err := s.notifier.Show(notifyTitle, body); err != nil {
		s.log.Warn().Err(err).Msg("reminder notification failed")
	}

	if err := store.SetBool(ctx, s.kv, store.NotifyMarkerKey(dayKey), true); err != nil {
		s.log.Warn().Err(err).Str("day", dayKey).Msg("persisting notify marker failed")
	}
	s.log.Info().Str("day", dayKey).Int("total", total).Msg("reset reminder sent")
}

// fireRollover refreshes presentation for the new day and re-arms the
// chain from a freshly computed boundary.
func (s *Scheduler) fireRollover(ctx context.Context) {
	now := s.now()
	newDay := nst.DayKey(now)

	s.mu.Lock()
	s.armedDay = ""
	s.mu.Unlock()

	s.log.Info().Str("day", newDay).Msg("day rolled over")
	if s.refresh != nil {
		s.refresh(s.totals.Snapshot(), newDay)
	}
	s.Arm(ctx)
}

// Stop cancels any armed timers; safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.armedDay = ""
}

func (s *Scheduler) stopLocked() {
	if s.warn != nil {
		s.warn.Stop()
		s.warn = nil
	}
	if s.rollover != nil {
		s.rollover.Stop()
		s.rollover = nil
	}
}
