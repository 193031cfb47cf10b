package nst

import (
	"testing"
	"time"
)

func mustZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		t.Fatalf("loading %s: %v", ZoneName, err)
	}
	return loc
}

func TestDayKeyIndependentOfObserverZone(t *testing.T) {
	loc := mustZone(t)
	// 2024-01-01 23:59:59 NST expressed as an instant.
	instant := time.Date(2024, 1, 1, 23, 59, 59, 0, loc)

	// The same instant viewed from Tokyo is already Jan 2 locally.
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("loading Asia/Tokyo: %v", err)
	}
	viewed := instant.In(tokyo)
	if viewed.Day() != 2 {
		t.Fatalf("test setup: expected Tokyo-local Jan 2, got %v", viewed)
	}

	if got := DayKey(viewed); got != "2024-01-01" {
		t.Fatalf("DayKey = %q, want 2024-01-01", got)
	}
}

func TestDayKeyRolloverSplitsDays(t *testing.T) {
	loc := mustZone(t)
	before := time.Date(2024, 1, 1, 23, 59, 59, 0, loc)
	after := time.Date(2024, 1, 2, 0, 0, 1, 0, loc)

	if DayKey(before) == DayKey(after) {
		t.Fatalf("events straddling NST midnight share a day key: %q", DayKey(before))
	}
	if got := DayKey(after); got != "2024-01-02" {
		t.Fatalf("DayKey after midnight = %q, want 2024-01-02", got)
	}
}

func TestTimeOfDay(t *testing.T) {
	loc := mustZone(t)
	instant := time.Date(2024, 6, 15, 9, 5, 3, 0, loc)
	if got := TimeOfDay(instant); got != "09:05:03" {
		t.Fatalf("TimeOfDay = %q, want 09:05:03", got)
	}
}

func TestNextMidnightStrictlyAfter(t *testing.T) {
	loc := mustZone(t)
	cases := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, loc), // exactly midnight
		time.Date(2024, 1, 1, 23, 59, 59, 0, loc),
		time.Date(2024, 3, 9, 12, 0, 0, 0, loc), // day before spring-forward
		time.Date(2024, 11, 2, 12, 0, 0, 0, loc), // day before fall-back
	}
	for _, c := range cases {
		next := NextMidnight(c)
		if !next.After(c) {
			t.Errorf("NextMidnight(%v) = %v, not strictly after", c, next)
		}
		if got := TimeOfDay(next); got != "00:00:00" {
			t.Errorf("NextMidnight(%v) lands at %s NST, want 00:00:00", c, got)
		}
		if DayKey(next) == DayKey(c) {
			t.Errorf("NextMidnight(%v) stayed on day %s", c, DayKey(c))
		}
	}
}

func TestNextMidnightAcrossSpringForward(t *testing.T) {
	loc := mustZone(t)
	// DST starts 2024-03-10 02:00 in Los Angeles; that day is 23 hours long.
	before := time.Date(2024, 3, 10, 1, 30, 0, 0, loc)
	next := NextMidnight(before)
	if got := DayKey(next); got != "2024-03-11" {
		t.Fatalf("DayKey(next) = %q, want 2024-03-11", got)
	}
	if d := next.Sub(before); d > 23*time.Hour {
		t.Fatalf("spring-forward day measured %v until midnight, want < 23h", d)
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{3*time.Hour + 25*time.Minute + 9*time.Second, "Resets in 3h 25m 9s (NST)"},
		{59 * time.Second, "Resets in 0h 0m 59s (NST)"},
		{0, "Resetting now…"},
		{-time.Second, "Resetting now…"},
	}
	for _, c := range cases {
		if got := FormatCountdown(c.d); got != c.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
