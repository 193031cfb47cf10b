// Package nst converts real time into Neopets Standard Time day keys and
// clock strings. NST is America/Los_Angeles; the igloo purchase cap resets
// at NST midnight regardless of where the observer is.
package nst

import (
	"fmt"
	"time"
)

// ZoneName is the IANA zone backing NST.
const ZoneName = "America/Los_Angeles"

// DayKeyLayout is the calendar-date format used as the aggregation key.
const DayKeyLayout = "2006-01-02"

// location resolves the NST zone on every call. The offset is cheap to
// recompute and caching it would go stale across DST transitions.
func location() *time.Location {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		// The IANA name is a constant; this only happens on a host with
		// no zone database at all. Fixed PST keeps day keys usable.
		return time.FixedZone("NST", -8*60*60)
	}
	return loc
}

// Now returns the current instant.
func Now() time.Time {
	return time.Now()
}

// DayKey returns the NST calendar date of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.In(location()).Format(DayKeyLayout)
}

// TimeOfDay returns the NST wall clock of t as HH:MM:SS.
func TimeOfDay(t time.Time) string {
	return t.In(location()).Format("15:04:05")
}

// NextMidnight returns the first NST midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	loc := location()
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// UntilReset returns the time remaining until the next NST midnight.
func UntilReset(t time.Time) time.Duration {
	return NextMidnight(t).Sub(t)
}

// FormatCountdown renders a remaining duration as "Xh Ym Zs (NST)".
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "Resetting now…"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("Resets in %dh %dm %ds (NST)", h, m, s)
}
