// Package period derives the UTC-stable keys that bound recurring rewards:
// calendar day keys for daily missions and the lottery pool, ISO week keys
// for weekly missions and the invite counter.
package period

import (
	"fmt"
	"time"
)

// Clock supplies the current time. Services take a Clock so tests can pin
// period boundaries and the check-in cooldown.
type Clock func() time.Time

// UTCNow is the production Clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}

// DayKey returns the UTC calendar-day key, e.g. "2024-07-19".
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeekKey returns the ISO-8601 week key, e.g. "2024-W29".
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
